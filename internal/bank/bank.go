// Package bank manages named knowledge banks. Each bank is a
// directory under the data dir holding a sqlite vector store and a
// bleve keyword index side by side.
package bank

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlxlab/raglab/internal/config"
	"github.com/mlxlab/raglab/internal/store"
	"github.com/mlxlab/raglab/internal/textindex"
)

// DefaultName is the bank used when none is given.
const DefaultName = "default"

// ErrNotFound reports a bank that has not been created yet.
var ErrNotFound = errors.New("bank not found")

const (
	dbFile       = "vectors.db"
	textIndexDir = "text-index"
)

// Bank is an open knowledge bank.
type Bank struct {
	Name   string
	Dir    string
	Chunks *store.ChunkStore
	Text   *textindex.Index

	db *store.DB
}

// ValidateName rejects names that would escape the data dir or
// produce awkward paths.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("bank name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid bank name: %q", name)
	}
	return nil
}

// Dir returns the directory a bank lives in, without creating it.
func Dir(cfg *config.Config, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}

// OpenExisting opens the named bank, failing with ErrNotFound if it
// has never been created. Read paths use this so a typoed bank name
// does not materialize an empty bank; only ingest and import create.
func OpenExisting(cfg *config.Config, name string) (*Bank, error) {
	ok, err := Exists(cfg, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("bank %q: %w", name, ErrNotFound)
	}
	return Open(cfg, name)
}

// Open opens the named bank, creating it on first use.
func Open(cfg *config.Config, name string) (*Bank, error) {
	dir, err := Dir(cfg, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create bank dir: %w", err)
	}

	db, err := store.Open(filepath.Join(dir, dbFile))
	if err != nil {
		return nil, fmt.Errorf("open bank %s: %w", name, err)
	}

	text, err := textindex.Open(filepath.Join(dir, textIndexDir))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open bank %s text index: %w", name, err)
	}

	return &Bank{
		Name:   name,
		Dir:    dir,
		Chunks: store.NewChunkStore(db),
		Text:   text,
		db:     db,
	}, nil
}

// Exists reports whether the named bank has been created.
func Exists(cfg *config.Config, name string) (bool, error) {
	dir, err := Dir(cfg, name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(dir, dbFile))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the names of all existing banks.
func List(cfg *config.Config) ([]string, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dataDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dataDir, e.Name(), dbFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Close releases the bank's store and index.
func (b *Bank) Close() error {
	var firstErr error
	if b.Text != nil {
		if err := b.Text.Close(); err != nil {
			firstErr = err
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
