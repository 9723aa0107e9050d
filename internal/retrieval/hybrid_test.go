package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/embedding"
	"github.com/mlxlab/raglab/internal/store"
	"github.com/mlxlab/raglab/internal/textindex"
)

// mapClient embeds known texts to fixed vectors.
type mapClient struct {
	vecs map[string][]float32
}

func (m *mapClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vecs[t]; ok {
			out[i] = append([]float32(nil), v...)
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (m *mapClient) Dimensions() int { return 3 }

type fixture struct {
	chunks *store.ChunkStore
	text   *textindex.Index
	embed  *embedding.Service
}

func newFixture(t *testing.T, queryVecs map[string][]float32) *fixture {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	idx, err := textindex.Create(filepath.Join(t.TempDir(), "text-index"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	return &fixture{
		chunks: store.NewChunkStore(db),
		text:   idx,
		embed:  embedding.NewServiceWithClient(&config.EmbeddingConfig{}, &mapClient{vecs: queryVecs}),
	}
}

func (f *fixture) add(t *testing.T, source, text string, vec []float32) {
	t.Helper()
	ctx := context.Background()
	id := store.ChunkID(source, 0)
	require.NoError(t, f.chunks.UpsertChunks(ctx, []store.Chunk{{
		ID:     id,
		Source: source,
		Seq:    0,
		Text:   text,
		Vector: vec,
	}}))
	require.NoError(t, f.text.Index(map[string]textindex.Entry{
		id: {Text: text, Source: source},
	}))
}

func TestSearch_VectorLeadsRanking(t *testing.T) {
	f := newFixture(t, map[string][]float32{
		"about cats": {1, 0, 0},
	})
	f.add(t, "cats.md", "a document describing cats", []float32{1, 0, 0})
	f.add(t, "dogs.md", "a document describing dogs", []float32{0, 1, 0})

	r := NewHybridRetriever(f.chunks, f.text, f.embed, nil)
	results, err := r.Search(context.Background(), "about cats", SearchOptions{
		TopK:         2,
		VectorWeight: 1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "cats.md", results[0].Chunk.Source)
	assert.Greater(t, results[0].VectorScore, 0.9)
}

func TestSearch_KeywordOnly(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "cats.md", "felines purr and chase mice", []float32{1, 0, 0})
	f.add(t, "dogs.md", "canines bark and fetch sticks", []float32{0, 1, 0})

	r := NewHybridRetriever(f.chunks, f.text, f.embed, nil)
	results, err := r.Search(context.Background(), "bark fetch", SearchOptions{
		TopK:          2,
		KeywordWeight: 1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "dogs.md", results[0].Chunk.Source)
	assert.Zero(t, results[0].VectorScore)
	assert.Greater(t, results[0].KeywordScore, 0.0)
}

func TestSearch_MergesLegsById(t *testing.T) {
	f := newFixture(t, map[string][]float32{
		"purring felines": {1, 0, 0},
	})
	// Matches both legs: close vector and shared keyword.
	f.add(t, "cats.md", "felines purr constantly", []float32{0.9, 0.1, 0})
	// Vector-only neighbor.
	f.add(t, "near.md", "nothing lexical in common", []float32{0.8, 0.2, 0})

	r := NewHybridRetriever(f.chunks, f.text, f.embed, nil)
	results, err := r.Search(context.Background(), "purring felines", SearchOptions{
		TopK:          2,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "cats.md", results[0].Chunk.Source)
	assert.Greater(t, results[0].VectorScore, 0.0)
	assert.Greater(t, results[0].KeywordScore, 0.0)
}

func TestSearch_WeightsNormalized(t *testing.T) {
	f := newFixture(t, map[string][]float32{"q": {1, 0, 0}})
	f.add(t, "a.md", "some text", []float32{1, 0, 0})

	r := NewHybridRetriever(f.chunks, f.text, f.embed, nil)
	// Weights 7/3 behave like 0.7/0.3.
	results, err := r.Search(context.Background(), "q", SearchOptions{
		TopK:          1,
		VectorWeight:  7,
		KeywordWeight: 3,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.LessOrEqual(t, results[0].CombinedScore, 1.0)
}

func TestSearch_ZeroWeightsFallBackToVector(t *testing.T) {
	f := newFixture(t, map[string][]float32{"q": {1, 0, 0}})
	f.add(t, "a.md", "some text", []float32{1, 0, 0})

	r := NewHybridRetriever(f.chunks, f.text, f.embed, nil)
	results, err := r.Search(context.Background(), "q", SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].CombinedScore, 1e-6)
}

func TestSearch_SourceFilter(t *testing.T) {
	f := newFixture(t, map[string][]float32{"q": {1, 0, 0}})
	f.add(t, "a.md", "first document text", []float32{1, 0, 0})
	f.add(t, "b.md", "second document text", []float32{0.9, 0.1, 0})

	r := NewHybridRetriever(f.chunks, f.text, f.embed, nil)
	results, err := r.Search(context.Background(), "q", SearchOptions{
		TopK:         5,
		VectorWeight: 1,
		SourceFilter: "b.md",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.md", results[0].Chunk.Source)
}

func TestSearch_RerankCutsToRerankTopK(t *testing.T) {
	f := newFixture(t, map[string][]float32{"felines": {1, 0, 0}})
	vecs := [][]float32{
		{1, 0, 0}, {0.95, 0.05, 0}, {0.9, 0.1, 0}, {0.85, 0.15, 0},
	}
	names := []string{"a.md", "b.md", "c.md", "felines.md"}
	texts := []string{"alpha text", "beta text", "gamma text", "felines everywhere"}
	for i := range names {
		f.add(t, names[i], texts[i], vecs[i])
	}

	r := NewHybridRetriever(f.chunks, f.text, f.embed, NewLexicalReranker())
	results, err := r.Search(context.Background(), "felines", SearchOptions{
		TopK:         4,
		VectorWeight: 1,
		Rerank:       true,
		CandidateK:   4,
		RerankTopK:   2,
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	// The lexical hit should survive the cut despite its weaker vector.
	found := false
	for _, res := range results {
		if res.Chunk.Source == "felines.md" {
			found = true
		}
	}
	assert.True(t, found, "expected term-overlap candidate to be promoted by reranking")
}

func TestSearch_NilTextIndexIsVectorOnly(t *testing.T) {
	f := newFixture(t, map[string][]float32{"q": {1, 0, 0}})
	f.add(t, "a.md", "text", []float32{1, 0, 0})

	r := NewHybridRetriever(f.chunks, nil, f.embed, nil)
	results, err := r.Search(context.Background(), "q", SearchOptions{
		TopK:          1,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].KeywordScore)
}
