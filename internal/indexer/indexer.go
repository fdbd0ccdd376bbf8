package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/embedding"
	"github.com/hyperjump/notionrag/internal/keyword"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/storage"
	"github.com/hyperjump/notionrag/internal/vector"
)

var (
	// ErrNoDocuments is returned when a rebuild has nothing to index.
	ErrNoDocuments = errors.New("no documents to index")
	// ErrNoIndex is returned when no index has been built at the configured location.
	ErrNoIndex = errors.New("no index built yet: run 'ingest' first")
	// ErrLocked is returned when another writer is rebuilding the same index.
	ErrLocked = errors.New("index is locked by another writer")
)

// Metadata keys added to vector records.
const (
	metaDocumentID = "document_id"
	metaChunkIndex = "chunk_index"
)

// Indexer rebuilds the index directory from a set of documents.
type Indexer struct {
	dir        string
	embedder   embedding.Embedder
	chunker    *Chunker
	vectorOpts vector.Options
	batchSize  int
	now        func() time.Time
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many chunks are embedded per call.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithClock overrides the build timestamp source.
func WithClock(now func() time.Time) IndexerOption {
	return func(idx *Indexer) { idx.now = now }
}

// NewIndexer creates an indexer that writes the index to dir.
func NewIndexer(dir string, embedder embedding.Embedder, chunker *Chunker, vectorOpts vector.Options, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		dir:        filepath.Clean(dir),
		embedder:   embedder,
		chunker:    chunker,
		vectorOpts: vectorOpts,
		batchSize:  embedding.DefaultBatchSize,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.vectorOpts.Logger == nil {
		idx.vectorOpts.Logger = idx.logger
	}
	idx.vectorOpts.Dimensions = embedder.Dimensions()
	return idx
}

// Dir returns the index directory.
func (idx *Indexer) Dir() string { return idx.dir }

// Rebuild replaces the index with one built from docs. The new index is written to a
// staging directory and swapped into place only when complete, under an exclusive lock,
// so readers never observe a partial index. Returns ErrNoDocuments when docs yield no chunks.
func (idx *Indexer) Rebuild(ctx context.Context, docs []models.Document) (*Manifest, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	chunks, err := idx.chunker.Chunk(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk documents: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoDocuments
	}
	idx.logger.Info("chunked documents", zap.Int("documents", len(docs)), zap.Int("chunks", len(chunks)))

	lock, err := AcquireLock(idx.dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			idx.logger.Warn("failed to release index lock", zap.Error(err))
		}
	}()

	if err := idx.embed(ctx, chunks); err != nil {
		return nil, err
	}

	staging := idx.dir + ".staging-" + uuid.NewString()
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	swapped := false
	defer func() {
		if !swapped {
			_ = os.RemoveAll(staging)
		}
	}()

	if err := writeStore(ctx, staging, docs, chunks); err != nil {
		return nil, err
	}
	if err := writeKeyword(ctx, staging, docs); err != nil {
		return nil, err
	}
	if err := idx.writeVectors(ctx, staging, chunks); err != nil {
		return nil, err
	}

	m := &Manifest{
		Version:        ManifestVersion,
		EmbeddingModel: idx.embedder.Model(),
		Dimensions:     idx.embedder.Dimensions(),
		ChunkSize:      idx.chunker.chunkSize,
		ChunkOverlap:   idx.chunker.chunkOverlap,
		VectorBackend:  backendName(idx.vectorOpts.Backend),
		Documents:      len(docs),
		Chunks:         len(chunks),
		BuiltAt:        idx.now().UTC(),
	}
	if m.VectorBackend == string(vector.BackendChroma) {
		m.Collection = idx.vectorOpts.Collection
	}
	if err := writeManifest(staging, m); err != nil {
		return nil, err
	}

	if err := swapDir(staging, idx.dir); err != nil {
		return nil, err
	}
	swapped = true
	idx.logger.Info("index rebuilt",
		zap.String("dir", idx.dir),
		zap.Int("documents", m.Documents),
		zap.Int("chunks", m.Chunks),
		zap.String("model", m.EmbeddingModel),
	)
	return m, nil
}

func (idx *Indexer) embed(ctx context.Context, chunks []models.Chunk) error {
	for start := 0; start < len(chunks); start += idx.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+idx.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Content
		}
		vecs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(texts))
		}
		for i, v := range vecs {
			chunks[start+i].Embedding = v
		}
		idx.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end))
	}
	return nil
}

func writeStore(ctx context.Context, dir string, docs []models.Document, chunks []models.Chunk) error {
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, storage.FileName))
	if err != nil {
		return err
	}
	if err := store.BatchCreateDocuments(ctx, docs); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to store documents: %w", err)
	}
	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	if err := store.Compact(ctx); err != nil {
		_ = store.Close()
		return err
	}
	return store.Close()
}

func writeKeyword(ctx context.Context, dir string, docs []models.Document) error {
	kw, err := keyword.NewBleveIndex(filepath.Join(dir, keyword.DirName))
	if err != nil {
		return err
	}
	if err := kw.IndexBatch(ctx, docs); err != nil {
		_ = kw.Close()
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	return kw.Close()
}

// writeVectors stores the embeddings. For a remote backend the live collection is
// reset here, after everything else in the staging directory has been written.
func (idx *Indexer) writeVectors(ctx context.Context, dir string, chunks []models.Chunk) error {
	vec, err := vector.NewVectorIndex(ctx, idx.vectorOpts)
	if err != nil {
		return err
	}
	defer vec.Close()

	records := make([]vector.Record, len(chunks))
	for i, ch := range chunks {
		meta := make(map[string]string, len(ch.Metadata)+2)
		for k, v := range ch.Metadata {
			meta[k] = v
		}
		meta[metaDocumentID] = ch.DocumentID
		meta[metaChunkIndex] = strconv.Itoa(ch.ChunkIndex)
		records[i] = vector.Record{ID: ch.ID, Vector: ch.Embedding, Content: ch.Content, Metadata: meta}
	}
	if err := vec.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset vector index: %w", err)
	}
	if err := vec.Add(ctx, records); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	if err := vec.Save(dir); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}
	return nil
}

// swapDir moves staging to dir. An existing dir is renamed aside first and removed after the swap.
func swapDir(staging, dir string) error {
	old := ""
	if _, err := os.Stat(dir); err == nil {
		old = dir + ".old-" + uuid.NewString()
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("failed to move previous index aside: %w", err)
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("failed to move new index into place: %w", err)
	}
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("failed to remove previous index: %w", err)
		}
	}
	return nil
}

func backendName(b string) string {
	if b == "" {
		return string(vector.BackendMemory)
	}
	return b
}
