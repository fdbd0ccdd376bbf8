// Package keyword provides a full-text index over note titles and content.
// It backs offline note lookup; retrieval for answers is vector-only.
package keyword

import (
	"context"

	"github.com/hyperjump/notionrag/internal/models"
)

// DirName is the keyword index directory inside an index directory.
const DirName = "keyword"

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score of title matches. Values <= 1 search title and content as one field.
	TitleBoost float64
	// FuzzyEnabled tolerates typos up to Fuzziness edits per term.
	FuzzyEnabled bool
	Fuzziness    int
}

// KeywordIndex defines keyword search operations over notes.
type KeywordIndex interface {
	Index(ctx context.Context, doc *models.Document) error
	IndexBatch(ctx context.Context, docs []models.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit; ID is the document ID.
type KeywordResult struct {
	ID    string
	Score float64
}
