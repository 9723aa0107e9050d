package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Reranker reorders a candidate pool for a query. Implementations may
// call out to a cross-encoder service; the default is purely lexical.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Result) ([]Result, error)
}

// LexicalReranker scores candidates by query-term overlap with the
// chunk text and blends that with the retrieval score. It is a cheap
// stand-in for a cross-encoder: exact term hits in the text push a
// candidate up even when its embedding landed mid-pool.
type LexicalReranker struct {
	// OverlapWeight is the share of the final score taken from term
	// overlap; the rest comes from the original combined score.
	OverlapWeight float64
}

// NewLexicalReranker returns a reranker with the stock 0.5 blend.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{OverlapWeight: 0.5}
}

func (r *LexicalReranker) Rerank(ctx context.Context, query string, candidates []Result) ([]Result, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return candidates, nil
	}

	w := r.OverlapWeight
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}

	reranked := make([]Result, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		overlap := termOverlap(queryTerms, reranked[i].Chunk.Text, reranked[i].Chunk.Title)
		reranked[i].RerankScore = overlap
		reranked[i].CombinedScore = (1-w)*reranked[i].CombinedScore + w*overlap
	}

	sort.Slice(reranked, func(i, j int) bool {
		return reranked[i].CombinedScore > reranked[j].CombinedScore
	})
	return reranked, nil
}

// termOverlap reports the fraction of query terms present in the text
// or title, slightly boosted for title hits.
func termOverlap(queryTerms map[string]struct{}, text, title string) float64 {
	textTerms := termSet(text)
	titleTerms := termSet(title)

	var score float64
	for term := range queryTerms {
		if _, ok := textTerms[term]; ok {
			score += 1.0
		} else if _, ok := titleTerms[term]; ok {
			score += 1.2
		}
	}
	overlap := score / float64(len(queryTerms))
	if overlap > 1 {
		overlap = 1
	}
	return overlap
}

func termSet(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		terms[tok] = struct{}{}
	}
	return terms
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"how": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "this": true,
	"to": true, "was": true, "what": true, "when": true, "where": true,
	"which": true, "with": true,
}
