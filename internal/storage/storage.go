// Package storage persists documents and chunk text inside an index directory.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/notionrag/internal/models"
)

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document and chunk persistence. Order of insertion is kept.
type Storage interface {
	BatchCreateDocuments(ctx context.Context, docs []models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]models.Document, error)

	BatchCreateChunks(ctx context.Context, chunks []models.Chunk) error
	GetChunks(ctx context.Context, ids []string) (map[string]models.Chunk, error)
	ListChunks(ctx context.Context) ([]models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
