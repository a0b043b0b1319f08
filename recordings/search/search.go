package search

import (
	"context"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Search is the Bleve-based search index over recordings.
type Search struct {
	index bleve.Index
}

// Document is the document we store in Bleve per recording.
type Document struct {
	// Recording ID
	ID    string `json:"id"`
	Title string `json:"title"`
	// TitleExact is a helper field to make exact title match more accurate
	TitleExact string `json:"title_exact"`
	Subtitle   string `json:"subtitle"`
	Channel    string `json:"channel"`
}

// New creates a new in-memory index.
func New() (*Search, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Search{index: idx}, nil
}

// buildIndexMapping builds the Bleve index field mapping configuration.
func buildIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	// text mapping for title, subtitle, channel
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "en"
	// Not storing the full text, only indexing. We only care about getting
	// a match and then retrieving IDs.
	textFieldMapping.Store = false
	textFieldMapping.Index = true

	// keyword mapping for exact matches like IDs
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	doc.AddFieldMappingsAt("id", keyword)
	doc.AddFieldMappingsAt("title", textFieldMapping)
	doc.AddFieldMappingsAt("title_exact", keyword)
	doc.AddFieldMappingsAt("subtitle", textFieldMapping)
	doc.AddFieldMappingsAt("channel", textFieldMapping)

	m.DefaultMapping = doc

	return m
}

// Index indexes or updates a batch of documents.
func (b *Search) Index(ctx context.Context, docs []Document) error {
	batch := b.index.NewBatch()
	for _, doc := range docs {
		doc.TitleExact = strings.ToLower(doc.Title)
		if err := batch.Index(doc.ID, doc); err != nil {
			return err
		}
	}
	return b.index.Batch(batch)
}

// Delete removes a document from the index.
func (b *Search) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Search runs a fuzzy search across title, subtitle and channel name.
// Returns matching recording IDs, best match first.
func (b *Search) Search(ctx context.Context, searchTerm string, size int) ([]string, error) {
	searchTerm = strings.ToLower(strings.TrimSpace(searchTerm))
	if searchTerm == "" {
		return nil, nil
	}

	const (
		boostTitleExact  = 50.0 // strongest: exact match on title_exact field
		boostTitlePrefix = 6.0  // strong: prefix on whole query against title
		boostTitleField  = 3.0  // fuzzy on title tokens
		boostOtherFields = 1.0  // default for other fields
	)

	boolQuery := bleve.NewBooleanQuery()

	termExact := bleve.NewTermQuery(searchTerm)
	termExact.SetField("title_exact")
	termExact.SetBoost(boostTitleExact)
	boolQuery.AddShould(termExact)

	prefix := bleve.NewPrefixQuery(searchTerm)
	prefix.SetField("title")
	prefix.SetBoost(boostTitlePrefix)
	boolQuery.AddShould(prefix)

	for _, token := range strings.Fields(searchTerm) {
		fuzzy := bleve.NewFuzzyQuery(token)
		fuzzy.SetField("title")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(boostTitleField)
		boolQuery.AddShould(fuzzy)

		for _, field := range []string{"subtitle", "channel"} {
			match := bleve.NewMatchQuery(token)
			match.SetField(field)
			match.SetBoost(boostOtherFields)
			boolQuery.AddShould(match)
		}
	}
	boolQuery.SetMinShould(1)

	req := bleve.NewSearchRequestOptions(boolQuery, size, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
