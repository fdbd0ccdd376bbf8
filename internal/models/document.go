// Package models defines core data structures for notes, chunks, and answers.
package models

// Metadata keys carried by documents and inherited by their chunks.
const (
	MetaSource         = "source"
	MetaTitle          = "title"
	MetaURL            = "url"
	MetaKind           = "kind"
	MetaDataSourceID   = "data_source_id"
	MetaLastEditedTime = "last_edited_time"
)

// Document kinds.
const (
	KindPage = "page"
	KindRow  = "row"
)

// Document is one Notion page or data-source row with its full extracted text.
type Document struct {
	ID       string            `json:"id"`
	SourceID string            `json:"source_id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Chunk is a bounded, overlap-preserving piece of a Document; the unit that is embedded.
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	SourceID   string            `json:"source_id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	ChunkIndex int               `json:"chunk_index"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Embedding  []float32         `json:"-"`
}

// RetrievedChunk is a chunk returned by similarity search, most similar first.
type RetrievedChunk struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	SourceID   string            `json:"source_id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	ChunkIndex int               `json:"chunk_index"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
