// Package textindex maintains the per-bank bleve index that backs the
// keyword leg of hybrid retrieval. Documents are chunk-sized: one bleve
// document per stored chunk, addressed by the chunk id.
package textindex

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// Entry is what gets indexed for a chunk. Text is indexed but not
// stored; the sqlite store remains the single source of chunk text.
type Entry struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Title  string `json:"title"`
}

// Hit is a keyword match, scored by bleve.
type Hit struct {
	ID    string
	Score float64
}

// Index wraps a bleve index rooted at a bank's text-index directory.
type Index struct {
	idx bleve.Index
}

// Create resets dir and builds a fresh index there.
func Create(dir string) (*Index, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset text index dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create text index dir: %w", err)
	}
	idx, err := bleve.New(dir, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Open opens an existing index, creating one if dir does not exist yet.
func Open(dir string) (*Index, error) {
	idx, err := bleve.Open(dir)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return Create(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Index adds or replaces entries keyed by chunk id, in one batch.
func (x *Index) Index(entries map[string]Entry) error {
	batch := x.idx.NewBatch()
	for id, entry := range entries {
		if err := batch.Index(id, entry); err != nil {
			return fmt.Errorf("index chunk %s: %w", id, err)
		}
	}
	return x.idx.Batch(batch)
}

// DeleteBySource removes every chunk indexed under the given source.
func (x *Index) DeleteBySource(source string) error {
	q := bleve.NewTermQuery(source)
	q.SetField("source")
	req := bleve.NewSearchRequestOptions(q, 10000, 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return fmt.Errorf("find chunks for %s: %w", source, err)
	}
	batch := x.idx.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	return x.idx.Batch(batch)
}

// Search runs a disjunction over text and title, title boosted.
func (x *Index) Search(query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 10
	}

	textQuery := bleve.NewMatchQuery(query)
	textQuery.SetField("text")
	textQuery.SetBoost(1.0)
	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(2.0)

	queries := []blevequery.Query{textQuery, titleQuery}
	disjunction := bleve.NewDisjunctionQuery(queries...)

	req := bleve.NewSearchRequestOptions(disjunction, topK, 0, false)
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, Hit{ID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// Count reports the number of indexed chunks.
func (x *Index) Count() (uint64, error) {
	return x.idx.DocCount()
}

func (x *Index) Close() error {
	return x.idx.Close()
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "text"

	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Store = false
	textField.Index = true
	docMapping.AddFieldMappingsAt("text", textField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Store = false
	titleField.Index = true
	docMapping.AddFieldMappingsAt("title", titleField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Store = false
	sourceField.Index = true
	sourceField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("source", sourceField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
