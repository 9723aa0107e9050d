package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot file names inside an export directory.
const (
	SnapshotVectorsFile = "vectors.bin"
	SnapshotMetaFile    = "meta.json"
)

const snapshotVersion = 1

// SnapshotMeta is the JSON sidecar of an exported bank. Row i of the
// vectors matrix corresponds to Chunks[i]; Count, byte length, and
// Checksum pin that correspondence down so a torn or mismatched pair
// is rejected on import instead of silently misattributing text.
type SnapshotMeta struct {
	Format   string              `json:"format"`
	Version  int                 `json:"version"`
	Model    string              `json:"model,omitempty"`
	Dims     int                 `json:"dims"`
	Count    int                 `json:"count"`
	Checksum string              `json:"checksum"`
	Chunks   []SnapshotChunkMeta `json:"chunks"`
}

// SnapshotChunkMeta is the per-row chunk metadata.
type SnapshotChunkMeta struct {
	Source    string `json:"source"`
	Title     string `json:"title,omitempty"`
	Seq       int    `json:"seq"`
	PageStart int    `json:"page_start,omitempty"`
	PageEnd   int    `json:"page_end,omitempty"`
	Text      string `json:"text"`
}

// Export writes the bank as a flat vectors matrix plus JSON sidecar.
func (s *ChunkStore) Export(ctx context.Context, dir, model string) (*SnapshotMeta, error) {
	chunks, err := s.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("bank is empty, nothing to export")
	}

	dims := len(chunks[0].Vector)
	matrix := make([]byte, 0, len(chunks)*dims*4)
	meta := &SnapshotMeta{
		Format:  "raglab-snapshot",
		Version: snapshotVersion,
		Model:   model,
		Dims:    dims,
		Count:   len(chunks),
		Chunks:  make([]SnapshotChunkMeta, 0, len(chunks)),
	}

	for _, c := range chunks {
		if len(c.Vector) != dims {
			return nil, fmt.Errorf("chunk %s has dimension %d, expected %d", c.ID, len(c.Vector), dims)
		}
		matrix = append(matrix, EncodeVector(c.Vector)...)
		meta.Chunks = append(meta.Chunks, SnapshotChunkMeta{
			Source:    c.Source,
			Title:     c.Title,
			Seq:       c.Seq,
			PageStart: c.PageStart,
			PageEnd:   c.PageEnd,
			Text:      c.Text,
		})
	}

	sum := sha256.Sum256(matrix)
	meta.Checksum = hex.EncodeToString(sum[:])

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SnapshotVectorsFile), matrix, 0644); err != nil {
		return nil, fmt.Errorf("write vectors: %w", err)
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, SnapshotMetaFile), metaJSON, 0644); err != nil {
		return nil, fmt.Errorf("write meta: %w", err)
	}

	return meta, nil
}

// Import loads a snapshot directory into the bank, replacing nothing:
// rows are upserted under their derived chunk ids. It verifies the
// matrix/metadata pairing before writing anything.
func (s *ChunkStore) Import(ctx context.Context, dir string) (*SnapshotMeta, error) {
	metaJSON, err := os.ReadFile(filepath.Join(dir, SnapshotMetaFile))
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("parse meta: %w", err)
	}
	if meta.Format != "raglab-snapshot" {
		return nil, fmt.Errorf("unrecognized snapshot format: %q", meta.Format)
	}
	if meta.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", meta.Version)
	}

	matrix, err := os.ReadFile(filepath.Join(dir, SnapshotVectorsFile))
	if err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}

	if meta.Dims <= 0 {
		return nil, fmt.Errorf("snapshot dims must be positive, got %d", meta.Dims)
	}
	if len(meta.Chunks) != meta.Count {
		return nil, fmt.Errorf("snapshot metadata lists %d chunks but declares count %d", len(meta.Chunks), meta.Count)
	}
	if want := meta.Count * meta.Dims * 4; len(matrix) != want {
		return nil, fmt.Errorf("vectors file is %d bytes, expected %d (%d x %d float32)", len(matrix), want, meta.Count, meta.Dims)
	}
	sum := sha256.Sum256(matrix)
	if got := hex.EncodeToString(sum[:]); got != meta.Checksum {
		return nil, fmt.Errorf("vectors checksum mismatch: got %s, want %s", got, meta.Checksum)
	}

	rowBytes := meta.Dims * 4
	chunks := make([]Chunk, 0, meta.Count)
	for i, cm := range meta.Chunks {
		vec, err := DecodeVector(matrix[i*rowBytes : (i+1)*rowBytes])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		chunks = append(chunks, Chunk{
			ID:        ChunkID(cm.Source, cm.Seq),
			Source:    cm.Source,
			Title:     cm.Title,
			Seq:       cm.Seq,
			PageStart: cm.PageStart,
			PageEnd:   cm.PageEnd,
			Text:      cm.Text,
			Vector:    vec,
		})
	}

	if err := s.UpsertChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	return &meta, nil
}
