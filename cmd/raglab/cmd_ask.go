package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mlxlab/raglab/internal/bank"
	"github.com/mlxlab/raglab/internal/chat"
	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/store"
)

// handleAsk implements the ask subcommand
func handleAsk(cfg *config.Config, bankName string, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)

	var topK int
	var showContext, jsonOutput bool
	fs.IntVar(&topK, "k", 0, "Number of context chunks to use (default from config)")
	fs.BoolVar(&showContext, "show-context", false, "Print the retrieved context before the answer")
	fs.BoolVar(&jsonOutput, "json", false, "Output the answer and sources as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    raglab ask [options] "<question>"

DESCRIPTION:
    Answer a question grounded in the bank. Retrieves the top chunks,
    builds a context-only prompt, and sends it to the configured chat
    model. The model is instructed to answer as JSON with citations.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    raglab -bank papers ask "what is flash attention?"

    # Inspect what the model was shown
    raglab ask "what is flash attention?" -show-context
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: question is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	if cfg.Chat.Model == "" {
		log.Fatalf("No chat model configured; set chat.model in the config file")
	}

	question := fs.Arg(0)
	ctx := context.Background()

	b, err := bank.OpenExisting(cfg, bankName)
	if err != nil {
		log.Fatalf("Failed to open bank: %v", err)
	}
	defer b.Close()

	results, err := runSearch(ctx, cfg, b, question, searchFlags{topK: topK})
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		log.Fatalf("No results returned from bank %q", bankName)
	}

	contexts := make([]*store.Chunk, 0, len(results))
	for i := range results {
		contexts = append(contexts, results[i].Chunk)
	}

	if showContext {
		fmt.Println("Context:")
		for _, c := range contexts {
			fmt.Printf("  Source: %s\n", c.Source)
		}
		fmt.Println()
	}

	answer, err := chat.NewClient(cfg.Chat).Answer(ctx, question, contexts)
	if err != nil {
		log.Fatalf("Chat completion failed: %v", err)
	}

	if jsonOutput {
		sources := make([]string, 0, len(contexts))
		seen := make(map[string]bool)
		for _, c := range contexts {
			if !seen[c.Source] {
				seen[c.Source] = true
				sources = append(sources, c.Source)
			}
		}
		jsonData, err := json.MarshalIndent(map[string]interface{}{
			"question": question,
			"answer":   answer,
			"sources":  sources,
		}, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal answer: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println(answer)
}
