package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/notionrag/internal/answer"
	"github.com/hyperjump/notionrag/internal/config"
	"github.com/hyperjump/notionrag/internal/embedding"
	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/notion"
)

type fakeLoader struct {
	docs []models.Document
	err  error
	sel  notion.Selection
}

func (f *fakeLoader) Load(_ context.Context, sel notion.Selection) ([]models.Document, error) {
	f.sel = sel
	return f.docs, f.err
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return "From your notes: sessions are 45 minutes.", nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func notes() []models.Document {
	return []models.Document{
		{ID: "p1", SourceID: "p1", Title: "Pricing", Content: "Coaching sessions are 45 minutes and cost $80."},
		{ID: "p2", SourceID: "p2", Title: "Mindset", Content: "A growth mindset treats setbacks as feedback for learning."},
		{ID: "p3", SourceID: "p3", Title: "Career", Content: "Ask for a promotion after documenting your impact."},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Index.Dir = filepath.Join(t.TempDir(), "rag_index")
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 64
	cfg.Retrieval.MinScore = 0.35
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config, loader DocumentLoader, gen answer.Generator) *Pipeline {
	t.Helper()
	p, err := New(cfg, Deps{Embedder: embedding.NewMockEmbedder(64), Generator: gen, Loader: loader})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew_requiresEmbedder(t *testing.T) {
	if _, err := New(config.Default(), Deps{}); err == nil {
		t.Error("expected error without embedder")
	}
}

func TestIngestAndAsk(t *testing.T) {
	cfg := testConfig(t)
	loader := &fakeLoader{docs: notes()}
	gen := &fakeGenerator{}
	p := newPipeline(t, cfg, loader, gen)
	ctx := context.Background()

	sel := notion.Selection{PageIDs: []string{"p1"}}
	m, err := p.Ingest(ctx, sel)
	if err != nil {
		t.Fatal(err)
	}
	if m.Documents != 3 || m.Chunks != 3 {
		t.Errorf("manifest = %+v", m)
	}
	if len(loader.sel.PageIDs) != 1 {
		t.Errorf("selection not passed to loader: %+v", loader.sel)
	}

	a, err := p.Ask(ctx, "  How long is a coaching session?  ")
	if err != nil {
		t.Fatal(err)
	}
	if a.Failed || !strings.Contains(a.Text, "45 minutes") {
		t.Errorf("answer = %+v", a)
	}
	if a.Question != "How long is a coaching session?" {
		t.Errorf("question not trimmed: %q", a.Question)
	}
	if len(a.Chunks) == 0 || a.Chunks[0].DocumentID != "p1" {
		t.Errorf("chunks = %+v", a.Chunks)
	}
	if gen.calls() != 1 || !strings.Contains(gen.prompts[0], "Coaching sessions are 45 minutes") {
		t.Errorf("prompt did not carry context: %v", gen.prompts)
	}
}

func TestAsk_unrelatedQuestionFallsBack(t *testing.T) {
	cfg := testConfig(t)
	gen := &fakeGenerator{}
	p := newPipeline(t, cfg, nil, gen)
	if _, err := p.Index(context.Background(), notes()); err != nil {
		t.Fatal(err)
	}
	a, err := p.Ask(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatal(err)
	}
	if a.Text != answer.FallbackMessage {
		t.Errorf("text = %q", a.Text)
	}
	if gen.calls() != 0 {
		t.Error("generator should not run without context")
	}
}

func TestAsk_noIndex(t *testing.T) {
	p := newPipeline(t, testConfig(t), nil, &fakeGenerator{})
	a, err := p.Ask(context.Background(), "anything")
	if !errors.Is(err, indexer.ErrNoIndex) {
		t.Fatalf("err = %v", err)
	}
	if a.Text != answer.NoIndexMessage || !a.Failed {
		t.Errorf("answer = %+v", a)
	}
}

func TestAsk_generationError(t *testing.T) {
	cfg := testConfig(t)
	p := newPipeline(t, cfg, nil, &fakeGenerator{err: errors.New("quota exceeded")})
	if _, err := p.Index(context.Background(), notes()); err != nil {
		t.Fatal(err)
	}
	a, err := p.Ask(context.Background(), "How long is a coaching session?")
	var ge *answer.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v", err)
	}
	if !a.Failed || a.Text != "Sorry, something went wrong: quota exceeded" {
		t.Errorf("answer = %+v", a)
	}
}

func TestAsk_emptyQuestion(t *testing.T) {
	p := newPipeline(t, testConfig(t), nil, &fakeGenerator{})
	a, err := p.Ask(context.Background(), "   ")
	if err == nil || !a.Failed {
		t.Errorf("expected failure, got %+v %v", a, err)
	}
}

func TestIngest_emptySelection(t *testing.T) {
	p := newPipeline(t, testConfig(t), &fakeLoader{}, nil)
	if _, err := p.Ingest(context.Background(), notion.Selection{}); !errors.Is(err, config.ErrNoSourceSelected) {
		t.Errorf("err = %v", err)
	}
}

func TestIngest_noDocuments(t *testing.T) {
	p := newPipeline(t, testConfig(t), &fakeLoader{}, nil)
	_, err := p.Ingest(context.Background(), notion.Selection{DataSourceID: "ds"})
	if !errors.Is(err, indexer.ErrNoDocuments) {
		t.Errorf("err = %v", err)
	}
}

func TestIngest_loaderError(t *testing.T) {
	p := newPipeline(t, testConfig(t), &fakeLoader{err: errors.New("unauthorized")}, nil)
	if _, err := p.Ingest(context.Background(), notion.Selection{DataSourceID: "ds"}); err == nil {
		t.Error("expected loader error")
	}
}

func TestReloadAfterRebuild(t *testing.T) {
	cfg := testConfig(t)
	p := newPipeline(t, cfg, nil, &fakeGenerator{})
	ctx := context.Background()
	if _, err := p.Index(ctx, notes()[:1]); err != nil {
		t.Fatal(err)
	}
	st, err := p.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 1 || st.DiskBytes <= 0 {
		t.Errorf("status = %+v", st)
	}

	if _, err := p.Index(ctx, notes()); err != nil {
		t.Fatal(err)
	}
	st, err = p.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 3 || st.Manifest.Chunks != 3 {
		t.Errorf("served index not reloaded: %+v", st)
	}
}

func TestRetrieveK(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retrieval.MinScore = 0
	p := newPipeline(t, cfg, nil, nil)
	if _, err := p.Index(context.Background(), notes()); err != nil {
		t.Fatal(err)
	}
	got, err := p.RetrieveK(context.Background(), "promotion impact", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].DocumentID != "p3" {
		t.Errorf("got %+v", got)
	}
}

func TestSearchNotes(t *testing.T) {
	p := newPipeline(t, testConfig(t), nil, nil)
	if _, err := p.Index(context.Background(), notes()); err != nil {
		t.Fatal(err)
	}
	hits, err := p.SearchNotes(context.Background(), "mindset", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].DocumentID != "p2" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestConcurrentAsk(t *testing.T) {
	cfg := testConfig(t)
	gen := &fakeGenerator{}
	p := newPipeline(t, cfg, nil, gen)
	if _, err := p.Index(context.Background(), notes()); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Ask(context.Background(), "How long is a coaching session?"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if gen.calls() != 8 {
		t.Errorf("calls = %d", gen.calls())
	}
}
