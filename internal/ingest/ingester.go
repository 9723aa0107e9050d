// Package ingest drives the document-to-bank pipeline: resolve files,
// parse, chunk, embed, and store into both the vector store and the
// keyword index.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/mlxlab/raglab/internal/chunker"
	"github.com/mlxlab/raglab/internal/document"
	"github.com/mlxlab/raglab/internal/embedding"
	"github.com/mlxlab/raglab/internal/store"
	"github.com/mlxlab/raglab/internal/textindex"
)

// Options control one ingestion run.
type Options struct {
	// Replace drops previously stored chunks for each ingested source
	// before writing the new ones.
	Replace bool
	// Progress receives per-file updates; nil disables reporting.
	Progress ProgressReporter
}

// Stats summarizes an ingestion run.
type Stats struct {
	Files   int
	Chunks  int
	Skipped int
}

// Ingester wires the pipeline stages together for one bank.
type Ingester struct {
	chunkCfg chunker.Config
	chunks   *store.ChunkStore
	text     *textindex.Index
	embedder *embedding.Service
	logger   *log.Logger
}

// New creates an ingester. text may be nil to skip keyword indexing.
func New(chunkCfg chunker.Config, chunks *store.ChunkStore, text *textindex.Index, embedder *embedding.Service, logger *log.Logger) *Ingester {
	if logger == nil {
		logger = log.Default()
	}
	return &Ingester{
		chunkCfg: chunkCfg,
		chunks:   chunks,
		text:     text,
		embedder: embedder,
		logger:   logger,
	}
}

// ResolveFiles expands the given paths into the list of supported
// files to ingest. Directories are walked recursively, honoring a
// .raglabignore file at each directory root; unsupported files inside
// directories are silently skipped, but a file named explicitly must
// be supported.
func ResolveFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if !document.IsSupported(path) {
				return nil, fmt.Errorf("unsupported file type: %s", path)
			}
			add(path)
			continue
		}

		matcher, err := LoadIgnoreFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", IgnoreFileName, err)
		}

		root := path
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil || rel == "." {
				return nil
			}
			if d.IsDir() {
				if d.Name() == ".git" || matcher.Match(rel, true) {
					return filepath.SkipDir
				}
				return nil
			}
			if matcher.Match(rel, false) {
				return nil
			}
			if document.IsSupported(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Run ingests the resolved files into the bank.
func (g *Ingester) Run(ctx context.Context, files []string, opts Options) (*Stats, error) {
	progress := opts.Progress
	if progress == nil {
		progress = noopProgress{}
	}

	stats := &Stats{}
	progress.Start(len(files))
	defer progress.Finish()

	for _, file := range files {
		progress.Describe(fmt.Sprintf("ingesting %s", filepath.Base(file)))

		n, err := g.ingestFile(ctx, file, opts.Replace)
		if err != nil {
			return stats, fmt.Errorf("ingest %s: %w", file, err)
		}
		if n == 0 {
			g.logger.Printf("skipping %s: no extractable text", file)
			stats.Skipped++
		} else {
			stats.Files++
			stats.Chunks += n
		}
		progress.Increment()
	}

	return stats, nil
}

func (g *Ingester) ingestFile(ctx context.Context, path string, replace bool) (int, error) {
	doc, err := document.ParseFile(path)
	if err != nil {
		return 0, err
	}
	if doc.Empty() {
		return 0, nil
	}

	pieces, err := chunker.ChunkDocument(doc, path, g.chunkCfg)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}
	if len(pieces) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Text
	}
	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}

	rows := make([]store.Chunk, len(pieces))
	entries := make(map[string]textindex.Entry, len(pieces))
	for i, p := range pieces {
		id := store.ChunkID(p.Source, p.Seq)
		rows[i] = store.Chunk{
			ID:        id,
			Source:    p.Source,
			Title:     p.Title,
			Seq:       p.Seq,
			PageStart: p.PageStart,
			PageEnd:   p.PageEnd,
			Text:      p.Text,
			Vector:    vectors[i],
		}
		entries[id] = textindex.Entry{
			Text:   p.Text,
			Source: p.Source,
			Title:  p.Title,
		}
	}

	if replace {
		if err := g.chunks.DeleteBySource(ctx, path); err != nil {
			return 0, fmt.Errorf("delete previous chunks: %w", err)
		}
		if g.text != nil {
			if err := g.text.DeleteBySource(path); err != nil {
				return 0, fmt.Errorf("delete previous index entries: %w", err)
			}
		}
	}

	if err := g.chunks.UpsertChunks(ctx, rows); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	if g.text != nil {
		if err := g.text.Index(entries); err != nil {
			return 0, fmt.Errorf("index chunks: %w", err)
		}
	}

	return len(rows), nil
}
