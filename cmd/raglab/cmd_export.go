package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mlxlab/raglab/internal/bank"
	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/textindex"
)

// reindexText rebuilds the keyword index from the stored chunks so an
// imported snapshot is searchable by both legs.
func reindexText(ctx context.Context, b *bank.Bank) error {
	chunks, err := b.Chunks.All(ctx)
	if err != nil {
		return err
	}
	entries := make(map[string]textindex.Entry, len(chunks))
	for _, c := range chunks {
		entries[c.ID] = textindex.Entry{
			Text:   c.Text,
			Source: c.Source,
			Title:  c.Title,
		}
	}
	return b.Text.Index(entries)
}

// handleExport implements the export subcommand
func handleExport(cfg *config.Config, bankName string, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    raglab export <dir>

DESCRIPTION:
    Write a snapshot of the bank: a flat float32 vector matrix
    (vectors.bin) plus chunk metadata and a checksum (meta.json).
    Snapshots move banks between machines without re-embedding.

EXAMPLES:
    raglab -bank papers export ./papers-snapshot
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: snapshot directory is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	b, err := bank.OpenExisting(cfg, bankName)
	if err != nil {
		log.Fatalf("Failed to open bank: %v", err)
	}
	defer b.Close()

	meta, err := b.Chunks.Export(context.Background(), fs.Arg(0), cfg.Embedding.Model)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fmt.Printf("Exported %d chunk(s) (%d dims) from bank %q to %s\n",
		meta.Count, meta.Dims, bankName, fs.Arg(0))
}

// handleImport implements the import subcommand
func handleImport(cfg *config.Config, bankName string, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    raglab import <dir>

DESCRIPTION:
    Load a snapshot into the bank. The vector matrix is validated
    against the metadata (count, dimensions, checksum) before any
    chunk is written. Imported chunks are also added to the keyword
    index.

EXAMPLES:
    raglab -bank papers import ./papers-snapshot
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: snapshot directory is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	b, err := bank.Open(cfg, bankName)
	if err != nil {
		log.Fatalf("Failed to open bank: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	meta, err := b.Chunks.Import(ctx, fs.Arg(0))
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	if err := reindexText(ctx, b); err != nil {
		log.Fatalf("Import succeeded but keyword reindex failed: %v", err)
	}

	fmt.Printf("Imported %d chunk(s) (%d dims) into bank %q\n",
		meta.Count, meta.Dims, bankName)
	if meta.Model != "" && meta.Model != cfg.Embedding.Model {
		fmt.Fprintf(os.Stderr, "Warning: snapshot was embedded with %q but config uses %q; queries will mix models\n",
			meta.Model, cfg.Embedding.Model)
	}
}
