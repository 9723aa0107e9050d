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

// handleDocs implements the docs subcommand
func handleDocs(cfg *config.Config, bankName string, args []string) {
	fs := flag.NewFlagSet("docs", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    raglab docs [options]

DESCRIPTION:
    List the documents ingested into the bank with their chunk counts.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	b, err := bank.OpenExisting(cfg, bankName)
	if err != nil {
		log.Fatalf("Failed to open bank: %v", err)
	}
	defer b.Close()

	sources, err := b.Chunks.ListSources(context.Background())
	if err != nil {
		log.Fatalf("Failed to list documents: %v", err)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"bank":      bankName,
			"documents": sources,
		}
		jsonData, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal documents: %v", err)
		}
		fmt.Println(string(jsonData))
		return
	}

	if len(sources) == 0 {
		fmt.Printf("Bank %q is empty\n", bankName)
		return
	}

	fmt.Printf("Documents in bank %q:\n\n", bankName)
	for _, src := range sources {
		fmt.Printf("  %s (%d chunks)\n", src.Source, src.Chunks)
	}
}
