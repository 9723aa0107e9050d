package store

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Chunk is a stored document chunk with its embedding.
type Chunk struct {
	ID        string
	Source    string
	Title     string
	Seq       int
	PageStart int
	PageEnd   int
	Text      string
	Vector    []float32
	CreatedAt time.Time
}

// SearchResult is a chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// SourceInfo describes one ingested document.
type SourceInfo struct {
	Source string
	Chunks int
}

// ChunkStore persists chunks and serves brute-force similarity search.
type ChunkStore struct {
	db *DB
	mu sync.Mutex
}

// NewChunkStore creates a chunk store over an open database.
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ChunkID derives a stable chunk identifier from source and sequence.
func ChunkID(source string, seq int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s#%d", source, seq)))
	return hex.EncodeToString(sum[:])
}

// UpsertChunks writes chunks in a single transaction.
func (s *ChunkStore) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.SQLDB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks
		(id, source, title, seq, page_start, page_end, text, dims, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if len(c.Vector) == 0 {
			_ = tx.Rollback()
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Source, c.Title, c.Seq, c.PageStart, c.PageEnd,
			c.Text, len(c.Vector), EncodeVector(c.Vector), createdAt.Unix(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteBySource removes all chunks for a document.
func (s *ChunkStore) DeleteBySource(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.SQLDB().ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source)
	return err
}

// Get returns a chunk by id, or nil if absent.
func (s *ChunkStore) Get(ctx context.Context, id string) (*Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.SQLDB().QueryRowContext(ctx, `SELECT id, source, title, seq, page_start, page_end, text, embedding, created_at
		FROM chunks WHERE id = ?`, id)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Search returns the topK chunks by cosine similarity to the query vector.
func (s *ChunkStore) Search(ctx context.Context, query []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	queryNorm := vectorNorm(query)
	if len(query) == 0 || queryNorm == 0 {
		return nil, fmt.Errorf("vector query is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.SQLDB().QueryContext(ctx, `SELECT id, source, title, seq, page_start, page_end, text, embedding, created_at FROM chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchResult
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if len(c.Vector) != len(query) {
			return nil, fmt.Errorf("stored vector dimension %d does not match query dimension %d", len(c.Vector), len(query))
		}
		hits = append(hits, SearchResult{
			Chunk: *c,
			Score: cosine(query, queryNorm, c.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ListSources returns distinct sources with chunk counts, ordered by name.
func (s *ChunkStore) ListSources(ctx context.Context) ([]SourceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.SQLDB().QueryContext(ctx,
		`SELECT source, COUNT(*) FROM chunks GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []SourceInfo
	for rows.Next() {
		var info SourceInfo
		if err := rows.Scan(&info.Source, &info.Chunks); err != nil {
			return nil, err
		}
		sources = append(sources, info)
	}
	return sources, rows.Err()
}

// All streams every chunk in (source, seq) order.
func (s *ChunkStore) All(ctx context.Context) ([]Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.SQLDB().QueryContext(ctx, `SELECT id, source, title, seq, page_start, page_end, text, embedding, created_at
		FROM chunks ORDER BY source, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	err := s.db.SQLDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Dimensions returns the embedding dimension of stored chunks, 0 when empty.
func (s *ChunkStore) Dimensions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dims int
	err := s.db.SQLDB().QueryRowContext(ctx, `SELECT dims FROM chunks LIMIT 1`).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return dims, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*Chunk, error) {
	var c Chunk
	var blob []byte
	var createdAt int64
	if err := row.Scan(&c.ID, &c.Source, &c.Title, &c.Seq, &c.PageStart, &c.PageEnd, &c.Text, &blob, &createdAt); err != nil {
		return nil, err
	}
	vec, err := DecodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
	}
	c.Vector = vec
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func cosine(query []float32, queryNorm float64, vec []float32) float64 {
	var dot, norm float64
	for i, v := range vec {
		fv := float64(v)
		dot += float64(query[i]) * fv
		norm += fv * fv
	}
	if norm == 0 {
		return 0
	}
	return dot / (queryNorm * math.Sqrt(norm))
}
