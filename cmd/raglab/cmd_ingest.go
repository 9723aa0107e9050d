package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mlxlab/raglab/internal/bank"
	"github.com/mlxlab/raglab/internal/chunker"
	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/embedding"
	"github.com/mlxlab/raglab/internal/ingest"
)

// handleIngest implements the ingest subcommand
func handleIngest(cfg *config.Config, bankName string, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)

	var replace, noProgress bool
	fs.BoolVar(&replace, "replace", false, "Replace previously ingested chunks for each source")
	fs.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    raglab ingest [options] <file-or-dir> [<file-or-dir>...]

DESCRIPTION:
    Parse, chunk, embed, and store documents into the bank.
    Directories are walked recursively; a .raglabignore file at the
    directory root excludes paths with gitignore-style patterns.

    Supported formats: .txt .md .markdown .html .htm .pdf .docx

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Ingest a single file
    raglab ingest paper.pdf

    # Ingest a directory into a named bank
    raglab -bank papers ingest ./papers

    # Re-ingest after editing, dropping stale chunks
    raglab -bank papers ingest -replace ./papers
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one file or directory is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	files, err := ingest.ResolveFiles(fs.Args())
	if err != nil {
		log.Fatalf("Failed to resolve files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No supported documents found under %v", fs.Args())
	}

	embedder, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}

	b, err := bank.Open(cfg, bankName)
	if err != nil {
		log.Fatalf("Failed to open bank: %v", err)
	}
	defer b.Close()

	chunkCfg := chunker.Config{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		MinChunk:     cfg.Chunking.MinChunk,
	}

	ingester := ingest.New(chunkCfg, b.Chunks, b.Text, embedder, log.Default())

	opts := ingest.Options{Replace: replace}
	if !noProgress && ingest.DefaultProgressEnabled() {
		opts.Progress = ingest.NewProgress(true)
	}

	stats, err := ingester.Run(context.Background(), files, opts)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Ingested %d file(s), %d chunk(s) into bank %q", stats.Files, stats.Chunks, bankName)
	if stats.Skipped > 0 {
		fmt.Printf(" (%d file(s) skipped, no extractable text)", stats.Skipped)
	}
	fmt.Println()
}
