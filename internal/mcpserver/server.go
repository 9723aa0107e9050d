// Package mcpserver exposes bank retrieval over MCP stdio so agent
// tooling can query and ask without shelling out to the CLI.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mlxlab/raglab/internal/bank"
	"github.com/mlxlab/raglab/internal/chat"
	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/embedding"
	"github.com/mlxlab/raglab/internal/retrieval"
	"github.com/mlxlab/raglab/internal/store"
)

// Server wraps the retrieval stack behind MCP tools.
type Server struct {
	cfg         *config.Config
	defaultBank string
	version     string
}

// New creates an MCP server. defaultBank is used when a tool call
// does not name a bank.
func New(cfg *config.Config, defaultBank, version string) *Server {
	if defaultBank == "" {
		defaultBank = bank.DefaultName
	}
	return &Server{
		cfg:         cfg,
		defaultBank: defaultBank,
		version:     version,
	}
}

// Run serves MCP over stdio until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "raglab",
		Title:   "RAG Lab",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "raglab_query",
		Description: "Retrieve the most relevant chunks from a knowledge bank via hybrid vector+keyword search.",
	}, s.queryTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "raglab_ask",
		Description: `Answer a question grounded in a knowledge bank.

Retrieves the top chunks, builds a context-only prompt, and returns the
model's answer together with the cited sources. Requires a configured
chat model.`,
	}, s.askTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "raglab_status",
		Description: `Report the contents of knowledge banks.

Pass a bank name for one bank, or omit it to list every bank with its
chunk count, source count, and embedding dimensions.`,
	}, s.statusTool)

	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) bankName(requested string) string {
	if requested != "" {
		return requested
	}
	return s.defaultBank
}

func (s *Server) queryTool(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	if input.Query == "" {
		return nil, QueryOutput{}, fmt.Errorf("query is required")
	}
	if input.VectorOnly && input.KeywordOnly {
		return nil, QueryOutput{}, fmt.Errorf("vector_only and keyword_only cannot both be true")
	}

	name := s.bankName(input.Bank)
	b, err := bank.OpenExisting(s.cfg, name)
	if err != nil {
		return nil, QueryOutput{}, err
	}
	defer b.Close()

	results, err := s.search(ctx, b, input.Query, searchParams{
		topK:        input.TopK,
		vectorOnly:  input.VectorOnly,
		keywordOnly: input.KeywordOnly,
		noRerank:    input.NoRerank,
	})
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Query:   input.Query,
		Bank:    name,
		Count:   len(results),
		Results: make([]QueryResultItem, 0, len(results)),
	}
	for _, r := range results {
		output.Results = append(output.Results, QueryResultItem{
			ID:     r.Chunk.ID,
			Source: r.Chunk.Source,
			Title:  r.Chunk.Title,
			Seq:    r.Chunk.Seq,
			Text:   r.Chunk.Text,
			Scores: QueryScores{
				Vector:   r.VectorScore,
				Keyword:  r.KeywordScore,
				Rerank:   r.RerankScore,
				Combined: r.CombinedScore,
			},
		})
	}
	return nil, output, nil
}

func (s *Server) askTool(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if input.Question == "" {
		return nil, AskOutput{}, fmt.Errorf("question is required")
	}

	name := s.bankName(input.Bank)
	b, err := bank.OpenExisting(s.cfg, name)
	if err != nil {
		return nil, AskOutput{}, err
	}
	defer b.Close()

	results, err := s.search(ctx, b, input.Question, searchParams{topK: input.TopK})
	if err != nil {
		return nil, AskOutput{}, err
	}
	if len(results) == 0 {
		return nil, AskOutput{}, fmt.Errorf("bank %s returned no results for the question", name)
	}

	contexts := make([]*store.Chunk, 0, len(results))
	sources := make([]AskSource, 0, len(results))
	for i := range results {
		contexts = append(contexts, results[i].Chunk)
		sources = append(sources, AskSource{
			Source: results[i].Chunk.Source,
			Title:  results[i].Chunk.Title,
			Score:  results[i].CombinedScore,
		})
	}

	answer, err := chat.NewClient(s.cfg.Chat).Answer(ctx, input.Question, contexts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Question: input.Question,
		Bank:     name,
		Answer:   answer,
		Sources:  sources,
	}, nil
}

func (s *Server) statusTool(ctx context.Context, _ *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	var names []string
	if input.Bank != "" {
		names = []string{input.Bank}
	} else {
		var err error
		names, err = bank.List(s.cfg)
		if err != nil {
			return nil, StatusOutput{}, err
		}
	}

	output := StatusOutput{Banks: make([]BankStatus, 0, len(names))}
	for _, name := range names {
		exists, err := bank.Exists(s.cfg, name)
		if err != nil {
			return nil, StatusOutput{}, err
		}
		if !exists {
			output.Banks = append(output.Banks, BankStatus{Name: name})
			continue
		}
		b, err := bank.OpenExisting(s.cfg, name)
		if err != nil {
			return nil, StatusOutput{}, err
		}
		status, err := bankStatus(ctx, b)
		b.Close()
		if err != nil {
			return nil, StatusOutput{}, err
		}
		status.Model = s.cfg.Embedding.Model
		output.Banks = append(output.Banks, status)
	}
	return nil, output, nil
}

func bankStatus(ctx context.Context, b *bank.Bank) (BankStatus, error) {
	count, err := b.Chunks.Count(ctx)
	if err != nil {
		return BankStatus{}, err
	}
	sources, err := b.Chunks.ListSources(ctx)
	if err != nil {
		return BankStatus{}, err
	}
	dims, err := b.Chunks.Dimensions(ctx)
	if err != nil {
		return BankStatus{}, err
	}
	return BankStatus{
		Name:       b.Name,
		Exists:     true,
		Chunks:     count,
		Sources:    len(sources),
		Dimensions: dims,
	}, nil
}

type searchParams struct {
	topK        int
	vectorOnly  bool
	keywordOnly bool
	noRerank    bool
}

func (s *Server) search(ctx context.Context, b *bank.Bank, query string, params searchParams) ([]retrieval.Result, error) {
	embedder, err := embedding.NewService(&s.cfg.Embedding)
	if err != nil {
		return nil, err
	}

	var reranker retrieval.Reranker
	if s.cfg.Search.RerankEnabled() && !params.noRerank {
		reranker = retrieval.NewLexicalReranker()
	}
	retriever := retrieval.NewHybridRetriever(b.Chunks, b.Text, embedder, reranker)

	opts := retrieval.SearchOptions{
		TopK:          s.cfg.Search.DefaultTopK,
		VectorWeight:  float64(s.cfg.Search.VectorWeight),
		KeywordWeight: float64(s.cfg.Search.KeywordWeight),
		Rerank:        reranker != nil,
		CandidateK:    s.cfg.Search.CandidateK,
		RerankTopK:    s.cfg.Search.RerankTopK,
	}
	if params.topK > 0 {
		opts.TopK = params.topK
		opts.RerankTopK = params.topK
	}
	if params.vectorOnly {
		opts.KeywordWeight = 0
	}
	if params.keywordOnly {
		opts.VectorWeight = 0
	}

	return retriever.Search(ctx, query, opts)
}
