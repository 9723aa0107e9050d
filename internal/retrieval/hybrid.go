package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/mlxlab/raglab/internal/embedding"
	"github.com/mlxlab/raglab/internal/store"
	"github.com/mlxlab/raglab/internal/textindex"
)

// HybridRetriever combines vector similarity over the chunk store with
// keyword search over the bleve index.
type HybridRetriever struct {
	chunks   *store.ChunkStore
	text     *textindex.Index
	embedder *embedding.Service
	reranker Reranker
}

// NewHybridRetriever creates a retriever. text may be nil, in which
// case search runs vector-only. reranker may be nil to disable
// reranking regardless of options.
func NewHybridRetriever(chunks *store.ChunkStore, text *textindex.Index, embedder *embedding.Service, reranker Reranker) *HybridRetriever {
	return &HybridRetriever{
		chunks:   chunks,
		text:     text,
		embedder: embedder,
		reranker: reranker,
	}
}

// SearchOptions configures a retrieval pass.
type SearchOptions struct {
	TopK          int     // Number of results to return
	VectorWeight  float64 // Weight for vector similarity (0-1)
	KeywordWeight float64 // Weight for keyword search (0-1)
	SourceFilter  string  // Restrict results to one source path
	Rerank        bool    // Rerank a wider candidate pool before cutting
	CandidateK    int     // Pool size fed to the reranker
	RerankTopK    int     // Results kept after reranking
}

// DefaultSearchOptions returns the stock retrieval settings.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:          5,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
		Rerank:        true,
		CandidateK:    20,
		RerankTopK:    5,
	}
}

// Result is one retrieved chunk with its score breakdown.
// CombinedScore is the final ranking score; after a rerank pass it
// includes the rerank signal, recorded separately in RerankScore.
type Result struct {
	Chunk         *store.Chunk
	VectorScore   float64
	KeywordScore  float64
	RerankScore   float64
	CombinedScore float64
}

// Search runs the hybrid pipeline: embed the query, gather a candidate
// pool from both legs, merge by chunk id with normalized weights, then
// optionally rerank before cutting to TopK.
func (h *HybridRetriever) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if h.text == nil {
		opts.KeywordWeight = 0
	}

	// Normalize weights
	totalWeight := opts.VectorWeight + opts.KeywordWeight
	if totalWeight == 0 {
		opts.VectorWeight = 1.0
		totalWeight = 1.0
	}
	opts.VectorWeight /= totalWeight
	opts.KeywordWeight /= totalWeight

	poolK := opts.TopK * 2
	if opts.Rerank && h.reranker != nil {
		if opts.CandidateK <= 0 {
			opts.CandidateK = 20
		}
		if poolK < opts.CandidateK {
			poolK = opts.CandidateK
		}
	}

	combined := make(map[string]*Result)

	// Vector leg
	if opts.VectorWeight > 0 {
		queryVector, err := h.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		vResults, err := h.chunks.Search(ctx, queryVector, poolK)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		for i := range vResults {
			c := vResults[i].Chunk
			combined[c.ID] = &Result{
				Chunk:       &c,
				VectorScore: vResults[i].Score,
			}
		}
	}

	// Keyword leg
	if opts.KeywordWeight > 0 {
		hits, err := h.text.Search(query, poolK)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		for i, hit := range hits {
			// Rank-based score: bleve's tf-idf scores are not on the
			// same scale as cosine similarity.
			score := 1.0 - float64(i)/float64(len(hits))
			if existing, ok := combined[hit.ID]; ok {
				existing.KeywordScore = score
				continue
			}
			chunk, err := h.chunks.Get(ctx, hit.ID)
			if err != nil {
				return nil, fmt.Errorf("load chunk %s: %w", hit.ID, err)
			}
			if chunk == nil {
				// Index entry with no backing row, skip it.
				continue
			}
			combined[hit.ID] = &Result{
				Chunk:        chunk,
				KeywordScore: score,
			}
		}
	}

	results := make([]Result, 0, len(combined))
	for _, r := range combined {
		if opts.SourceFilter != "" && r.Chunk.Source != opts.SourceFilter {
			continue
		}
		r.CombinedScore = opts.VectorWeight*r.VectorScore + opts.KeywordWeight*r.KeywordScore
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})

	if opts.Rerank && h.reranker != nil {
		if len(results) > opts.CandidateK {
			results = results[:opts.CandidateK]
		}
		reranked, err := h.reranker.Rerank(ctx, query, results)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
		results = reranked
		keep := opts.RerankTopK
		if keep <= 0 {
			keep = opts.TopK
		}
		if len(results) > keep {
			results = results[:keep]
		}
		return results, nil
	}

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}
