// Package rag wires ingestion, retrieval and answer composition into one explicitly
// constructed pipeline. Callers create a Pipeline once and share it.
package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/answer"
	"github.com/hyperjump/notionrag/internal/config"
	"github.com/hyperjump/notionrag/internal/embedding"
	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/notion"
	"github.com/hyperjump/notionrag/internal/search"
	"github.com/hyperjump/notionrag/internal/storage"
	"github.com/hyperjump/notionrag/internal/vector"
)

var errClosed = errors.New("pipeline is closed")

// DocumentLoader resolves a source selection to documents.
type DocumentLoader interface {
	Load(ctx context.Context, sel notion.Selection) ([]models.Document, error)
}

// Deps are the collaborators a Pipeline uses. Loader may be nil for query-only use.
type Deps struct {
	Embedder  embedding.Embedder
	Generator answer.Generator
	Loader    DocumentLoader
	Logger    *zap.Logger
}

// Status describes the index currently served.
type Status struct {
	Dir       string           `json:"dir"`
	Manifest  indexer.Manifest `json:"manifest"`
	Documents int64            `json:"documents"`
	Chunks    int64            `json:"chunks"`
	DiskBytes int64            `json:"disk_bytes"`
}

// Pipeline ingests notes into the configured index and answers questions from it.
// The read-only search engine is opened lazily and swapped by Reload; it is safe for
// concurrent use.
type Pipeline struct {
	cfg      *config.Config
	embedder embedding.Embedder
	composer *answer.Composer
	loader   DocumentLoader
	logger   *zap.Logger

	mu     sync.RWMutex
	engine *search.Engine
}

// New creates a pipeline. The embedder is required; the generator is needed only by Ask.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		cfg:      cfg,
		embedder: deps.Embedder,
		loader:   deps.Loader,
		logger:   logger,
	}
	if deps.Generator != nil {
		p.composer = answer.NewComposer(deps.Generator, answer.WithLogger(logger))
	}
	return p, nil
}

// Dir returns the index directory.
func (p *Pipeline) Dir() string { return p.cfg.Index.Dir }

func (p *Pipeline) vectorOptions() vector.Options {
	return vector.Options{
		Backend:    p.cfg.Index.VectorBackend,
		ChromaURL:  p.cfg.Index.ChromaURL,
		Collection: p.cfg.Index.Collection,
		Logger:     p.logger,
	}
}

// Ingest loads the selected notes and rebuilds the index from them. The served engine,
// if any, is reloaded afterwards.
func (p *Pipeline) Ingest(ctx context.Context, sel notion.Selection) (*indexer.Manifest, error) {
	if sel.Empty() {
		return nil, config.ErrNoSourceSelected
	}
	if p.loader == nil {
		return nil, fmt.Errorf("no document loader configured")
	}
	start := time.Now()
	docs, err := p.loader.Load(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	p.logger.Info("loaded notes", zap.Int("documents", len(docs)), zap.Duration("elapsed", time.Since(start)))
	return p.Index(ctx, docs)
}

// Index rebuilds the index from docs.
func (p *Pipeline) Index(ctx context.Context, docs []models.Document) (*indexer.Manifest, error) {
	chunker := indexer.NewChunker(p.cfg.Index.ChunkSize, p.cfg.Index.Overlap())
	idx := indexer.NewIndexer(p.cfg.Index.Dir, p.embedder, chunker, p.vectorOptions(),
		indexer.WithLogger(p.logger),
		indexer.WithBatchSize(p.cfg.Index.BatchSize),
	)
	m, err := idx.Rebuild(ctx, docs)
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	loaded := p.engine != nil
	p.mu.RUnlock()
	if loaded {
		if err := p.Reload(ctx); err != nil {
			p.logger.Warn("reload after ingest failed", zap.Error(err))
		}
	}
	return m, nil
}

// Reload opens the index from disk and swaps it in for the one being served.
func (p *Pipeline) Reload(ctx context.Context) error {
	e, err := search.Open(ctx, p.cfg.Index.Dir, p.embedder, p.vectorOptions(),
		search.WithLogger(p.logger),
		search.WithMinScore(p.cfg.Retrieval.MinScore),
	)
	if err != nil {
		return err
	}
	p.mu.Lock()
	old := p.engine
	p.engine = e
	p.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			p.logger.Warn("failed to close previous index", zap.Error(err))
		}
	}
	p.logger.Info("index loaded", zap.String("dir", p.cfg.Index.Dir), zap.Int("chunks", e.Manifest().Chunks))
	return nil
}

// withEngine runs fn with the served engine under a read lock, opening it first if needed.
func (p *Pipeline) withEngine(ctx context.Context, fn func(*search.Engine) error) error {
	p.mu.RLock()
	e := p.engine
	if e != nil {
		defer p.mu.RUnlock()
		return fn(e)
	}
	p.mu.RUnlock()

	if err := p.open(ctx); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.engine == nil {
		return errClosed
	}
	return fn(p.engine)
}

func (p *Pipeline) open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine != nil {
		return nil
	}
	e, err := search.Open(ctx, p.cfg.Index.Dir, p.embedder, p.vectorOptions(),
		search.WithLogger(p.logger),
		search.WithMinScore(p.cfg.Retrieval.MinScore),
	)
	if err != nil {
		return err
	}
	p.engine = e
	return nil
}

// Retrieve returns the configured top-k chunks for question.
func (p *Pipeline) Retrieve(ctx context.Context, question string) ([]models.RetrievedChunk, error) {
	return p.RetrieveK(ctx, question, p.cfg.Retrieval.K)
}

// RetrieveK returns the top k chunks for question.
func (p *Pipeline) RetrieveK(ctx context.Context, question string, k int) ([]models.RetrievedChunk, error) {
	var out []models.RetrievedChunk
	err := p.withEngine(ctx, func(e *search.Engine) error {
		var err error
		out, err = e.Retrieve(ctx, question, k)
		return err
	})
	return out, err
}

// Ask answers one question from the notes. The returned Answer always carries text
// that is safe to show: the reply, the fallback, the no-index message, or the error
// message. The error is non-nil when no answer could be produced, so callers can pick
// an exit code or status.
func (p *Pipeline) Ask(ctx context.Context, question string) (models.Answer, error) {
	req := models.QueryRequest{Question: question}
	if err := req.Validate(); err != nil {
		return models.Answer{Question: question, Text: answer.SafeMessage(err), Failed: true}, err
	}
	if p.composer == nil {
		err := fmt.Errorf("no generator configured")
		return models.Answer{Question: req.Question, Text: answer.SafeMessage(err), Failed: true}, err
	}

	chunks, err := p.Retrieve(ctx, req.Question)
	if err != nil {
		if errors.Is(err, indexer.ErrNoIndex) {
			return models.Answer{Question: req.Question, Text: answer.NoIndexMessage, Failed: true}, err
		}
		p.logger.Error("retrieval failed", zap.Error(err))
		return models.Answer{Question: req.Question, Text: answer.SafeMessage(err), Failed: true}, err
	}
	text, err := p.composer.Generate(ctx, req.Question, chunks)
	if err != nil {
		p.logger.Error("answer generation failed", zap.Error(err))
		return models.Answer{Question: req.Question, Chunks: chunks, Text: answer.SafeMessage(err), Failed: true}, err
	}
	return models.Answer{Question: req.Question, Chunks: chunks, Text: text}, nil
}

// SearchNotes runs a keyword search over note titles and content.
func (p *Pipeline) SearchNotes(ctx context.Context, query string, limit int) ([]search.NoteHit, error) {
	var hits []search.NoteHit
	err := p.withEngine(ctx, func(e *search.Engine) error {
		var err error
		hits, err = e.SearchNotes(ctx, query, limit, p.cfg.Retrieval.PreviewChars)
		return err
	})
	return hits, err
}

// Status reports the served index.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	var st *Status
	err := p.withEngine(ctx, func(e *search.Engine) error {
		docs, chunks, err := e.Stats(ctx)
		if err != nil {
			return err
		}
		size, err := storage.DiskUsageBytes(e.Dir())
		if err != nil {
			return fmt.Errorf("failed to measure index size: %w", err)
		}
		st = &Status{Dir: e.Dir(), Manifest: e.Manifest(), Documents: docs, Chunks: chunks, DiskBytes: size}
		return nil
	})
	return st, err
}

// Close releases the served index and the embedder.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	e := p.engine
	p.engine = nil
	p.mu.Unlock()
	var errs []error
	if e != nil {
		errs = append(errs, e.Close())
	}
	errs = append(errs, p.embedder.Close())
	return errors.Join(errs...)
}
