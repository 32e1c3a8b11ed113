package gita

import (
	"fmt"

	"github.com/blevesearch/bleve"
)

// Index is an in-memory full-text index over verse translations and
// transliterations, used to narrow the corpus to a candidate set before
// the model picks the final verses.
type Index struct {
	idx    bleve.Index
	verses map[string]Verse
}

type indexDoc struct {
	Translation     string `json:"translation"`
	Transliteration string `json:"transliteration"`
}

// NewIndex builds the index from the full corpus.
func NewIndex(verses []Verse) (*Index, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("create verse index: %w", err)
	}
	byID := make(map[string]Verse, len(verses))
	for _, v := range verses {
		byID[v.VerseID] = v
		doc := indexDoc{Translation: v.TranslationEn, Transliteration: v.Transliteration}
		if err := idx.Index(v.VerseID, doc); err != nil {
			return nil, fmt.Errorf("index verse %s: %w", v.VerseID, err)
		}
	}
	return &Index{idx: idx, verses: byID}, nil
}

// Search returns up to limit verses ranked by relevance to the query
// terms. An empty result is not an error; callers decide the fallback.
func (i *Index) Search(query string, limit int) ([]Verse, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search verse index: %w", err)
	}
	matches := make([]Verse, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if v, ok := i.verses[hit.ID]; ok {
			matches = append(matches, v)
		}
	}
	return matches, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}
