// Package search retrieves the chunks most similar to a question from a built index.
package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/embedding"
	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/keyword"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/storage"
	"github.com/hyperjump/notionrag/internal/vector"
)

// ErrModelMismatch is returned when the query embedder differs from the one the index was built with.
var ErrModelMismatch = errors.New("embedding model does not match the index")

// Engine answers similarity queries against one built index. It is read-only and safe
// for concurrent use.
type Engine struct {
	dir      string
	manifest indexer.Manifest
	embedder embedding.Embedder
	vectors  vector.VectorIndex
	store    storage.Storage
	minScore float64
	logger   *zap.Logger

	kwOnce sync.Once
	kw     keyword.KeywordIndex
	kwErr  error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for retrieval diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMinScore drops results whose similarity is not above min. 0 keeps everything.
func WithMinScore(min float64) Option {
	return func(e *Engine) { e.minScore = min }
}

// Open opens the index at dir read-only. It returns indexer.ErrNoIndex when nothing has
// been built and ErrModelMismatch when embedder is not the model recorded in the manifest.
// vectorOpts supplies connection settings; the backend, collection and dimensions come
// from the manifest.
func Open(ctx context.Context, dir string, embedder embedding.Embedder, vectorOpts vector.Options, opts ...Option) (*Engine, error) {
	m, err := indexer.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	if m.EmbeddingModel != embedder.Model() || m.Dimensions != embedder.Dimensions() {
		return nil, fmt.Errorf("%w: index built with %s (%d dims), query embedder is %s (%d dims); re-run 'ingest' or change the embedding settings",
			ErrModelMismatch, m.EmbeddingModel, m.Dimensions, embedder.Model(), embedder.Dimensions())
	}

	e := &Engine{dir: dir, manifest: *m, embedder: embedder, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	vectorOpts.Backend = m.VectorBackend
	vectorOpts.Dimensions = m.Dimensions
	if m.Collection != "" {
		vectorOpts.Collection = m.Collection
	}
	if vectorOpts.Logger == nil {
		vectorOpts.Logger = e.logger
	}
	e.vectors, err = vector.OpenVectorIndex(ctx, dir, vectorOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	e.store, err = storage.OpenSQLiteStorageReadOnly(filepath.Join(dir, storage.FileName))
	if err != nil {
		_ = e.vectors.Close()
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}
	return e, nil
}

// Manifest returns the manifest of the open index.
func (e *Engine) Manifest() indexer.Manifest { return e.manifest }

// Dir returns the index directory.
func (e *Engine) Dir() string { return e.dir }

// Retrieve returns at most k chunks most similar to query, best first. An empty index
// or k <= 0 yields an empty slice. Ties keep index insertion order.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return []models.RetrievedChunk{}, nil
	}
	n, err := e.vectors.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if n == 0 {
		return []models.RetrievedChunk{}, nil
	}

	q, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	hits, err := e.vectors.Search(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	chunks, err := e.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	out := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		if e.minScore > 0 && h.Score <= e.minScore {
			continue
		}
		ch, ok := chunks[h.ID]
		if !ok {
			e.logger.Warn("vector hit without stored chunk", zap.String("chunk_id", h.ID))
			continue
		}
		out = append(out, models.RetrievedChunk{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			SourceID:   ch.SourceID,
			Title:      ch.Title,
			Content:    ch.Content,
			ChunkIndex: ch.ChunkIndex,
			Score:      h.Score,
			Metadata:   ch.Metadata,
		})
	}
	e.logger.Debug("retrieved chunks",
		zap.String("query", query),
		zap.Int("k", k),
		zap.Int("hits", len(out)),
	)
	return out, nil
}

// Documents returns up to limit indexed notes in ingest order. A limit <= 0 returns all.
func (e *Engine) Documents(ctx context.Context, limit int) ([]models.Document, error) {
	return e.store.ListDocuments(ctx, 0, limit)
}

// Stats returns the number of stored documents and chunks.
func (e *Engine) Stats(ctx context.Context) (docs, chunks int64, err error) {
	if docs, err = e.store.CountDocuments(ctx); err != nil {
		return 0, 0, err
	}
	if chunks, err = e.store.CountChunks(ctx); err != nil {
		return 0, 0, err
	}
	return docs, chunks, nil
}

// Close releases the index files.
func (e *Engine) Close() error {
	var errs []error
	if e.kw != nil {
		errs = append(errs, e.kw.Close())
	}
	errs = append(errs, e.vectors.Close(), e.store.Close())
	return errors.Join(errs...)
}
