package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlxlab/raglab/internal/config"
)

// fakeClient returns fixed vectors without any network traffic.
type fakeClient struct {
	dims  int
	vecs  map[string][]float32
	calls [][]string
}

func (f *fakeClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vecs[t]; ok {
			out[i] = v
			continue
		}
		out[i] = make([]float32, f.dims)
		out[i][0] = 1
	}
	return out, nil
}

func (f *fakeClient) Dimensions() int { return f.dims }

func TestEmbedBatch_NormalizesVectors(t *testing.T) {
	client := &fakeClient{
		dims: 3,
		vecs: map[string][]float32{"hello": {3, 0, 4}},
	}
	svc := NewServiceWithClient(&config.EmbeddingConfig{}, client)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	var norm float64
	for _, x := range vecs[0] {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("expected unit vector, squared norm = %f", norm)
	}
}

func TestEmbedBatch_EmptyTextsKeepPosition(t *testing.T) {
	client := &fakeClient{dims: 2}
	svc := NewServiceWithClient(&config.EmbeddingConfig{}, client)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(vecs))
	}
	if vecs[1] != nil {
		t.Error("empty text should produce a nil vector at its position")
	}
	if vecs[0] == nil || vecs[2] == nil {
		t.Error("non-empty texts should be embedded")
	}
}

func TestEmbedBatch_AllEmpty(t *testing.T) {
	svc := NewServiceWithClient(&config.EmbeddingConfig{}, &fakeClient{dims: 2})
	if _, err := svc.EmbedBatch(context.Background(), []string{"", ""}); err == nil {
		t.Error("expected error when every text is empty")
	}
}

func TestEmbedBatch_HonorsBatchSize(t *testing.T) {
	client := &fakeClient{dims: 2}
	svc := NewServiceWithClient(&config.EmbeddingConfig{BatchSize: 2}, client)

	texts := []string{"a", "b", "c", "d", "e"}
	if _, err := svc.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(client.calls) != 3 {
		t.Errorf("expected 3 batches of size <= 2, got %d calls", len(client.calls))
	}
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	client := &fakeClient{dims: 4}
	svc := NewServiceWithClient(&config.EmbeddingConfig{Dimensions: 8}, client)

	if _, err := svc.EmbedBatch(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error when embedding dims disagree with config")
	}
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewServiceWithClient(&config.EmbeddingConfig{}, &fakeClient{dims: 2})
	if _, err := svc.Embed(context.Background(), ""); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestOpenAIClient_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}

		var req openAIEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := openAIEmbeddingResponse{}
		// Return out of order to exercise index-addressed mapping.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
				Object    string    `json:"object"`
			}{
				Embedding: []float32{float32(i), 1},
				Index:     i,
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(&config.EmbeddingConfig{
		Provider: "openai",
		APIKey:   "test-key",
		Endpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}

	vecs, err := client.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 0 || vecs[1][0] != 1 {
		t.Error("embeddings not mapped back by response index")
	}
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(&config.EmbeddingConfig{
		APIKey:   "test-key",
		Endpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}

	if _, err := client.EmbedBatch(context.Background(), []string{"x"}); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestOllamaClient_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("unexpected model: %s", req.Model)
		}

		resp := ollamaEmbedResponse{Model: req.Model}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOllamaClient(&config.EmbeddingConfig{
		Model:    "nomic-embed-text",
		Endpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("NewOllamaClient failed: %v", err)
	}

	vecs, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
}

func TestOllamaClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not found"})
	}))
	defer server.Close()

	client, err := NewOllamaClient(&config.EmbeddingConfig{
		Model:    "missing",
		Endpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("NewOllamaClient failed: %v", err)
	}

	_, err = client.EmbedBatch(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("expected error from ollama error payload")
	}
	if want := "model not found"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not mention %q", err, want)
	}
}
