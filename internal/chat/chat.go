// Package chat turns retrieved chunks into a grounded answer via an
// OpenAI-compatible chat completion endpoint.
package chat

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mlxlab/raglab/internal/chunker"
	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/store"
)

const promptTemplate = `You are an expert assistant. Your goal is to provide short, direct, and factually grounded answers based ONLY on the provided context. Your total response, including context, must not exceed %d tokens. Cite your sources clearly. The retrieval strategy used is hybrid search.

Provide your answer in JSON format, as a list of dictionaries, where each dictionary has an 'answer' key for the concise response and a 'source' key for the citation.

Context:
%s

Question: %s

Concise Answer (JSON):`

// Client answers questions against retrieved context.
type Client struct {
	cfg    config.ChatConfig
	client *openai.Client
}

// NewClient builds a chat client. A custom BaseURL points it at any
// OpenAI-compatible server (Ollama, llama.cpp, vLLM).
func NewClient(cfg config.ChatConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// BuildPrompt assembles the grounded prompt from retrieved chunks.
// Each chunk becomes a Source block; blocks are joined with a divider
// so the model can attribute citations per block. Contexts arrive in
// retrieval order, so once the token estimate crosses the budget the
// lower-ranked blocks are dropped. The top block always stays.
func (c *Client) BuildPrompt(question string, contexts []*store.Chunk) string {
	maxTokens := c.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	budget := maxTokens - chunker.EstimateTokens(fmt.Sprintf(promptTemplate, maxTokens, "", question))
	blocks := make([]string, 0, len(contexts))
	used := 0
	for _, chunk := range contexts {
		block := fmt.Sprintf("Source: %s\n%s", chunk.Source, chunk.Text)
		cost := chunker.EstimateTokens(block)
		if len(blocks) > 0 && used+cost > budget {
			break
		}
		blocks = append(blocks, block)
		used += cost
	}
	return fmt.Sprintf(promptTemplate, maxTokens, strings.Join(blocks, "\n---\n"), question)
}

// Answer sends the grounded prompt and returns the model's reply.
func (c *Client) Answer(ctx context.Context, question string, contexts []*store.Chunk) (string, error) {
	if len(contexts) == 0 {
		return "", fmt.Errorf("no context chunks to answer from")
	}

	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: c.BuildPrompt(question, contexts)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
