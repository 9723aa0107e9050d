package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/store"
)

func testChunks() []*store.Chunk {
	return []*store.Chunk{
		{Source: "attention.pdf", Text: "Flash attention tiles the softmax computation."},
		{Source: "notes.md", Text: "It avoids materializing the full attention matrix."},
	}
}

func TestBuildPrompt(t *testing.T) {
	c := NewClient(config.ChatConfig{MaxTokens: 4096})
	prompt := c.BuildPrompt("what is flash attention?", testChunks())

	if !strings.Contains(prompt, "Source: attention.pdf\nFlash attention tiles the softmax computation.") {
		t.Error("prompt missing first source block")
	}
	if !strings.Contains(prompt, "\n---\n") {
		t.Error("source blocks should be joined with a divider")
	}
	if !strings.Contains(prompt, "Question: what is flash attention?") {
		t.Error("prompt missing question")
	}
	if !strings.Contains(prompt, "must not exceed 4096 tokens") {
		t.Error("prompt missing token budget")
	}
	if !strings.Contains(prompt, "'answer'") || !strings.Contains(prompt, "'source'") {
		t.Error("prompt missing JSON answer instructions")
	}
	if !strings.HasSuffix(prompt, "Concise Answer (JSON):") {
		t.Error("prompt should end with the answer cue")
	}
}

func TestBuildPrompt_DefaultTokenBudget(t *testing.T) {
	c := NewClient(config.ChatConfig{})
	prompt := c.BuildPrompt("q", testChunks())
	if !strings.Contains(prompt, "4096 tokens") {
		t.Error("zero MaxTokens should fall back to 4096 in the prompt")
	}
}

func TestBuildPrompt_TrimsContextToBudget(t *testing.T) {
	huge := strings.TrimSpace(strings.Repeat("filler text ", 400))
	contexts := []*store.Chunk{
		{Source: "keep.md", Text: "Short block that fits the budget."},
		{Source: "drop.md", Text: huge},
	}

	c := NewClient(config.ChatConfig{MaxTokens: 200})
	prompt := c.BuildPrompt("q", contexts)

	if !strings.Contains(prompt, "Source: keep.md") {
		t.Error("top-ranked block must survive trimming")
	}
	if strings.Contains(prompt, "Source: drop.md") {
		t.Error("oversized lower-ranked block should be dropped")
	}
}

func TestBuildPrompt_KeepsTopBlockOverBudget(t *testing.T) {
	huge := strings.TrimSpace(strings.Repeat("filler text ", 400))
	c := NewClient(config.ChatConfig{MaxTokens: 100})
	prompt := c.BuildPrompt("q", []*store.Chunk{{Source: "only.md", Text: huge}})

	if !strings.Contains(prompt, "Source: only.md") {
		t.Error("sole context block must be kept even when over budget")
	}
}

func TestAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "Source: attention.pdf") {
			t.Error("request should carry the grounded prompt")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `[{"answer": "tiling", "source": "attention.pdf"}]`}},
			},
		})
	}))
	defer server.Close()

	c := NewClient(config.ChatConfig{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		Model:     "test-model",
		MaxTokens: 4096,
	})

	answer, err := c.Answer(context.Background(), "what is flash attention?", testChunks())
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(answer, "tiling") {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestAnswer_NoContext(t *testing.T) {
	c := NewClient(config.ChatConfig{Model: "m"})
	if _, err := c.Answer(context.Background(), "q", nil); err == nil {
		t.Error("expected error without context chunks")
	}
}
