package chunker

import (
	"fmt"
	"strings"

	"github.com/mlxlab/raglab/internal/document"
)

// Config controls chunking behavior. Sizes are in runes.
type Config struct {
	ChunkSize    int // Target chunk size
	ChunkOverlap int // Overlap carried between consecutive chunks
	MinChunk     int // Minimum chunk size to emit
}

// DefaultConfig returns the defaults used across the lab.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    256,
		ChunkOverlap: 50,
		MinChunk:     20,
	}
}

func (c Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunker: chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunker: overlap must be in [0, chunk size), got %d", c.ChunkOverlap)
	}
	return nil
}

// Chunk is a sized text segment ready for embedding.
type Chunk struct {
	Text      string // Chunk text content
	Source    string // Originating document name
	Title     string // Heading breadcrumb, e.g. "Results / Revenue"
	Seq       int    // Sequence number within the document
	PageStart int
	PageEnd   int
}

// ChunkDocument walks a parsed document and produces structure-aware chunks.
func ChunkDocument(doc *document.Document, source string, cfg Config) ([]Chunk, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var chunks []Chunk
	seq := 0
	for _, sec := range doc.Sections {
		var err error
		seq, err = walkSection(sec, nil, source, cfg, &chunks, seq)
		if err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

func walkSection(sec *document.Section, breadcrumb []string, source string, cfg Config, chunks *[]Chunk, seq int) (int, error) {
	bc := breadcrumb
	if sec.Heading != "" {
		bc = append(append([]string(nil), breadcrumb...), sec.Heading)
	}

	if sec.Text != "" {
		parts, err := Split(sec.Text, cfg)
		if err != nil {
			return seq, err
		}
		title := strings.Join(bc, " / ")
		for _, part := range parts {
			if len([]rune(part)) < cfg.MinChunk {
				continue
			}
			*chunks = append(*chunks, Chunk{
				Text:      part,
				Source:    source,
				Title:     title,
				Seq:       seq,
				PageStart: sec.Page,
				PageEnd:   sec.Page,
			})
			seq++
		}
	}

	for _, child := range sec.Children {
		var err error
		seq, err = walkSection(child, bc, source, cfg, chunks, seq)
		if err != nil {
			return seq, err
		}
	}
	return seq, nil
}

// Split breaks text into chunks of at most ChunkSize runes, carrying
// ChunkOverlap runes of trailing context into the next chunk. Paragraph
// boundaries are preferred, then sentence boundaries, then a hard window.
func Split(text string, cfg Config) ([]string, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len([]rune(text)) <= cfg.ChunkSize {
		return []string{text}, nil
	}

	paragraphs := splitParagraphs(text)

	var result []string
	var current strings.Builder
	currentRunes := 0

	flush := func() {
		if currentRunes > 0 {
			result = append(result, current.String())
			overlap := tailRunes(current.String(), cfg.ChunkOverlap)
			current.Reset()
			currentRunes = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentRunes = len([]rune(overlap))
			}
		}
	}

	for _, para := range paragraphs {
		paraRunes := len([]rune(para))

		// A single paragraph beyond the target gets split by sentences.
		if paraRunes > cfg.ChunkSize {
			if currentRunes > 0 {
				result = append(result, current.String())
				current.Reset()
				currentRunes = 0
			}
			result = append(result, splitSentences(para, cfg)...)
			continue
		}

		if currentRunes+paraRunes > cfg.ChunkSize && currentRunes > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
			currentRunes += 2
		}
		current.WriteString(para)
		currentRunes += paraRunes
	}

	if currentRunes > 0 {
		result = append(result, current.String())
	}

	return result, nil
}

func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitSentences breaks an oversized paragraph into sentence-packed chunks,
// falling back to a sliding rune window for unbreakable runs.
func splitSentences(text string, cfg Config) []string {
	sentences := sentenceBoundaries(text)

	var result []string
	var current strings.Builder
	currentRunes := 0

	for _, sent := range sentences {
		sentRunes := len([]rune(sent))

		if sentRunes > cfg.ChunkSize {
			if currentRunes > 0 {
				result = append(result, current.String())
				current.Reset()
				currentRunes = 0
			}
			result = append(result, slideWindow(sent, cfg.ChunkSize, cfg.ChunkOverlap)...)
			continue
		}

		if currentRunes+sentRunes > cfg.ChunkSize && currentRunes > 0 {
			result = append(result, current.String())
			overlap := tailRunes(current.String(), cfg.ChunkOverlap)
			current.Reset()
			currentRunes = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentRunes = len([]rune(overlap))
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
			currentRunes++
		}
		current.WriteString(sent)
		currentRunes += sentRunes
	}

	if currentRunes > 0 {
		result = append(result, current.String())
	}

	return result
}

func sentenceBoundaries(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

// slideWindow is the plain fixed-size window with overlap: chunks of size
// runes, advancing by size-overlap each step.
func slideWindow(text string, size, overlap int) []string {
	runes := []rune(text)
	step := size - overlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// tailRunes returns up to n trailing runes of text, snapped forward to the
// next word boundary so overlap never starts mid-word.
func tailRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return ""
	}
	tail := runes[len(runes)-n:]
	s := string(tail)
	if idx := strings.IndexAny(s, " \n"); idx >= 0 {
		s = strings.TrimLeft(s[idx:], " \n")
	}
	return s
}
