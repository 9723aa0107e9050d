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
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, bankName string, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var jsonOutput, allBanks bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	fs.BoolVar(&allBanks, "all", false, "Show statistics for every bank")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    raglab stats [options]

DESCRIPTION:
    Show statistics about the bank: chunk count, document count, and
    embedding dimensions.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	names := []string{bankName}
	if allBanks {
		var err error
		names, err = bank.List(cfg)
		if err != nil {
			log.Fatalf("Failed to list banks: %v", err)
		}
		if len(names) == 0 {
			fmt.Println("No banks found")
			return
		}
	}

	type bankStats struct {
		Bank       string `json:"bank"`
		Chunks     int    `json:"chunks"`
		Documents  int    `json:"documents"`
		Dimensions int    `json:"dimensions"`
		TextDocs   uint64 `json:"text_index_docs"`
	}

	ctx := context.Background()
	var all []bankStats
	for _, name := range names {
		b, err := bank.OpenExisting(cfg, name)
		if err != nil {
			log.Fatalf("Failed to open bank %q: %v", name, err)
		}

		count, err := b.Chunks.Count(ctx)
		if err != nil {
			b.Close()
			log.Fatalf("Failed to count chunks: %v", err)
		}
		sources, err := b.Chunks.ListSources(ctx)
		if err != nil {
			b.Close()
			log.Fatalf("Failed to list documents: %v", err)
		}
		dims, err := b.Chunks.Dimensions(ctx)
		if err != nil {
			b.Close()
			log.Fatalf("Failed to read dimensions: %v", err)
		}
		textDocs, err := b.Text.Count()
		if err != nil {
			b.Close()
			log.Fatalf("Failed to count index docs: %v", err)
		}
		b.Close()

		all = append(all, bankStats{
			Bank:       name,
			Chunks:     count,
			Documents:  len(sources),
			Dimensions: dims,
			TextDocs:   textDocs,
		})
	}

	if jsonOutput {
		jsonData, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal stats: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}

	for _, s := range all {
		fmt.Printf("Bank: %s\n", s.Bank)
		fmt.Printf("  Chunks:          %d\n", s.Chunks)
		fmt.Printf("  Documents:       %d\n", s.Documents)
		fmt.Printf("  Dimensions:      %d\n", s.Dimensions)
		fmt.Printf("  Text index docs: %d\n\n", s.TextDocs)
	}
}
