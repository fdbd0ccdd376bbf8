// Package vector stores chunk embeddings and answers nearest-neighbour queries.
package vector

import "context"

// Record is one chunk embedding with the text and metadata stored alongside it.
// Backends that keep text elsewhere may ignore Content and Metadata.
type Record struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	// Add stores records. Vectors must match the index dimensions.
	Add(ctx context.Context, records []Record) error
	// Search returns at most k results, most similar first. An empty index yields an empty slice.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	// Reset removes every record.
	Reset(ctx context.Context) error
	// Save persists the index under dir. Remote backends treat this as a no-op.
	Save(dir string) error
	// Load replaces the contents with what Save wrote under dir.
	Load(dir string) error
	// Size returns the number of stored vectors. Remote backends report an
	// unreachable server as an error rather than an empty index.
	Size(ctx context.Context) (int, error)
	Close() error
}

// Result is a single search hit. ID is the chunk ID; Score is cosine similarity.
type Result struct {
	ID    string
	Score float64
}
