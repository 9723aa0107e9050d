package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)

	chunks := []Chunk{
		testChunk("a.md", 0, "first chunk", []float32{1, 0, 0}),
		testChunk("a.md", 1, "second chunk", []float32{0, 1, 0}),
		testChunk("b.md", 0, "third chunk", []float32{0, 0, 1}),
	}
	chunks[0].Title = "Intro"
	require.NoError(t, src.UpsertChunks(ctx, chunks))

	dir := filepath.Join(t.TempDir(), "snap")
	meta, err := src.Export(ctx, dir, "test-model")
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Count)
	assert.Equal(t, 3, meta.Dims)
	assert.Equal(t, "test-model", meta.Model)
	assert.NotEmpty(t, meta.Checksum)

	dst := openTestStore(t)
	imported, err := dst.Import(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, imported.Count)

	count, err := dst.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, err := dst.Get(ctx, ChunkID("a.md", 0))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first chunk", got.Text)
	assert.Equal(t, "Intro", got.Title)
	assert.Equal(t, []float32{1, 0, 0}, got.Vector)
}

func TestSnapshot_ExportEmptyBank(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Export(context.Background(), t.TempDir(), "m")
	assert.Error(t, err)
}

func TestSnapshot_ImportRejectsCorruptVectors(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)
	require.NoError(t, src.UpsertChunks(ctx, []Chunk{
		testChunk("a.md", 0, "text", []float32{1, 0}),
	}))

	dir := filepath.Join(t.TempDir(), "snap")
	_, err := src.Export(ctx, dir, "m")
	require.NoError(t, err)

	// Flip one byte of the matrix; the checksum must catch it.
	vecPath := filepath.Join(dir, SnapshotVectorsFile)
	data, err := os.ReadFile(vecPath)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(vecPath, data, 0644))

	dst := openTestStore(t)
	_, err = dst.Import(ctx, dir)
	assert.ErrorContains(t, err, "checksum")
}

func TestSnapshot_ImportRejectsCountMismatch(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)
	require.NoError(t, src.UpsertChunks(ctx, []Chunk{
		testChunk("a.md", 0, "one", []float32{1, 0}),
		testChunk("a.md", 1, "two", []float32{0, 1}),
	}))

	dir := filepath.Join(t.TempDir(), "snap")
	_, err := src.Export(ctx, dir, "m")
	require.NoError(t, err)

	// Truncate the matrix to one row; declared count no longer matches.
	vecPath := filepath.Join(dir, SnapshotVectorsFile)
	data, err := os.ReadFile(vecPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(vecPath, data[:8], 0644))

	dst := openTestStore(t)
	_, err = dst.Import(ctx, dir)
	assert.Error(t, err)
}

func TestSnapshot_ImportRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotMetaFile),
		[]byte(`{"format":"something-else","version":1}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotVectorsFile), nil, 0644))

	s := openTestStore(t)
	_, err := s.Import(context.Background(), dir)
	assert.ErrorContains(t, err, "format")
}
