package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mlxlab/raglab/internal/bank"
	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/embedding"
	"github.com/mlxlab/raglab/internal/retrieval"
)

// handleQuery implements the query subcommand
func handleQuery(cfg *config.Config, bankName string, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)

	var topK int
	var vectorOnly, keywordOnly, noRerank, jsonOutput, verbose bool

	fs.IntVar(&topK, "k", 0, "Number of results to return (default from config)")
	fs.BoolVar(&vectorOnly, "vector-only", false, "Use vector search only")
	fs.BoolVar(&keywordOnly, "keyword-only", false, "Use keyword search only")
	fs.BoolVar(&noRerank, "no-rerank", false, "Skip reranking of the candidate pool")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	fs.BoolVar(&verbose, "v", false, "Verbose output (show score breakdown)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    raglab query [options] "<question>"

DESCRIPTION:
    Retrieve the most relevant chunks for a question.
    Hybrid search combines vector similarity and keyword matching,
    then reranks a wider candidate pool before returning results.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Natural language retrieval
    raglab query "what is flash attention?"

    # Keyword-only retrieval
    raglab query "softmax" -keyword-only

    # Top 10 results as JSON
    raglab query "attention mechanism" -k 10 -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	if vectorOnly && keywordOnly {
		log.Fatalf("-vector-only and -keyword-only cannot both be set")
	}

	query := fs.Arg(0)

	b, err := bank.OpenExisting(cfg, bankName)
	if err != nil {
		log.Fatalf("Failed to open bank: %v", err)
	}
	defer b.Close()

	results, err := runSearch(context.Background(), cfg, b, query, searchFlags{
		topK:        topK,
		vectorOnly:  vectorOnly,
		keywordOnly: keywordOnly,
		noRerank:    noRerank,
	})
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if jsonOutput {
		outputJSON(results, query)
	} else {
		outputText(results, query, verbose)
	}
}

// searchFlags carries the per-invocation retrieval overrides.
type searchFlags struct {
	topK        int
	vectorOnly  bool
	keywordOnly bool
	noRerank    bool
}

// runSearch builds the retriever from config and runs one query.
func runSearch(ctx context.Context, cfg *config.Config, b *bank.Bank, query string, flags searchFlags) ([]retrieval.Result, error) {
	embedder, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding service: %w", err)
	}

	var reranker retrieval.Reranker
	if cfg.Search.RerankEnabled() && !flags.noRerank {
		reranker = retrieval.NewLexicalReranker()
	}
	retriever := retrieval.NewHybridRetriever(b.Chunks, b.Text, embedder, reranker)

	opts := retrieval.SearchOptions{
		TopK:          cfg.Search.DefaultTopK,
		VectorWeight:  float64(cfg.Search.VectorWeight),
		KeywordWeight: float64(cfg.Search.KeywordWeight),
		Rerank:        reranker != nil,
		CandidateK:    cfg.Search.CandidateK,
		RerankTopK:    cfg.Search.RerankTopK,
	}
	if flags.topK > 0 {
		opts.TopK = flags.topK
		opts.RerankTopK = flags.topK
	}
	if flags.vectorOnly {
		opts.KeywordWeight = 0
	}
	if flags.keywordOnly {
		opts.VectorWeight = 0
	}

	return retriever.Search(ctx, query, opts)
}

// outputText prints results as human-readable text
func outputText(results []retrieval.Result, query string, verbose bool) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("Found %d result(s) for: %s\n\n", len(results), query)

	for i, result := range results {
		fmt.Printf("%d. %s", i+1, result.Chunk.Source)
		if result.Chunk.Title != "" {
			fmt.Printf(" — %s", result.Chunk.Title)
		}
		fmt.Println()

		if verbose {
			if result.VectorScore > 0 {
				fmt.Printf("   Vector:  %.3f\n", result.VectorScore)
			}
			if result.KeywordScore > 0 {
				fmt.Printf("   Keyword: %.3f\n", result.KeywordScore)
			}
			if result.RerankScore > 0 {
				fmt.Printf("   Rerank:  %.3f\n", result.RerankScore)
			}
			fmt.Printf("   Score:   %.3f\n", result.CombinedScore)
		}

		text := result.Chunk.Text
		if len(text) > 240 {
			text = text[:240] + "..."
		}
		fmt.Printf("   %s\n\n", text)
	}
}

type queryResultJSON struct {
	Source       string  `json:"source"`
	Title        string  `json:"title,omitempty"`
	Seq          int     `json:"seq"`
	PageStart    int     `json:"page_start,omitempty"`
	PageEnd      int     `json:"page_end,omitempty"`
	Text         string  `json:"text"`
	VectorScore  float64 `json:"vector_score,omitempty"`
	KeywordScore float64 `json:"keyword_score,omitempty"`
	RerankScore  float64 `json:"rerank_score,omitempty"`
	Score        float64 `json:"score"`
}

// outputJSON prints results as JSON. The embedding vectors are left
// out; they are store internals, not retrieval output.
func outputJSON(results []retrieval.Result, query string) {
	items := make([]queryResultJSON, 0, len(results))
	for _, r := range results {
		items = append(items, queryResultJSON{
			Source:       r.Chunk.Source,
			Title:        r.Chunk.Title,
			Seq:          r.Chunk.Seq,
			PageStart:    r.Chunk.PageStart,
			PageEnd:      r.Chunk.PageEnd,
			Text:         r.Chunk.Text,
			VectorScore:  r.VectorScore,
			KeywordScore: r.KeywordScore,
			RerankScore:  r.RerankScore,
			Score:        r.CombinedScore,
		})
	}

	output := map[string]interface{}{
		"query":   query,
		"count":   len(items),
		"results": items,
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal results: %v", err)
	}

	fmt.Println(string(jsonData))
}
