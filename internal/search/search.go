// Package search keeps a small in-memory full-text index over the passages
// of one redacted document so the UI can jump to relevant excerpts.
package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
)

const (
	PassageWords   = 200
	PassageOverlap = 40
	DefaultLimit   = 5
)

// Passage is a window of consecutive words from the document.
type Passage struct {
	Index int    `json:"index"`
	Start int    `json:"start_word"`
	Text  string `json:"text"`
}

// Hit is a scored passage returned by Search.
type Hit struct {
	Passage
	Score float64 `json:"score"`
}

// Index is a bleve in-memory index over a document's passages.
type Index struct {
	passages []Passage
	bm       bleve.Index
}

type passageDoc struct {
	Text string `json:"text"`
}

// SplitPassages cuts text into overlapping windows of size words, each
// starting size-overlap words after the previous one.
func SplitPassages(text string, size, overlap int) []Passage {
	if size <= 0 {
		size = PassageWords
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	words := strings.Fields(text)
	var out []Passage
	for i := 0; i < len(words); i += size - overlap {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, Passage{
			Index: len(out),
			Start: i,
			Text:  strings.Join(words[i:end], " "),
		})
		if end == len(words) {
			break
		}
	}
	return out
}

// Build indexes text in memory. An empty text yields an empty index.
func Build(text string) (*Index, error) {
	bm, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create passage index: %w", err)
	}

	passages := SplitPassages(text, PassageWords, PassageOverlap)
	batch := bm.NewBatch()
	for _, p := range passages {
		if err := batch.Index(strconv.Itoa(p.Index), passageDoc{Text: p.Text}); err != nil {
			bm.Close()
			return nil, fmt.Errorf("index passage %d: %w", p.Index, err)
		}
	}
	if err := bm.Batch(batch); err != nil {
		bm.Close()
		return nil, fmt.Errorf("failed to index passages: %w", err)
	}
	return &Index{passages: passages, bm: bm}, nil
}

// Len reports the number of indexed passages.
func (idx *Index) Len() int {
	return len(idx.passages)
}

// Search returns up to limit passages matching query, best first.
func (idx *Index) Search(query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" || len(idx.passages) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := idx.bm.Search(req)
	if err != nil {
		return nil, fmt.Errorf("passage search error: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		i, err := strconv.Atoi(h.ID)
		if err != nil || i < 0 || i >= len(idx.passages) {
			continue
		}
		hits = append(hits, Hit{Passage: idx.passages[i], Score: h.Score})
	}
	return hits, nil
}

// Close releases the underlying index.
func (idx *Index) Close() error {
	if idx == nil || idx.bm == nil {
		return nil
	}
	return idx.bm.Close()
}
