// Package integration runs the assembled pipeline, quota store and HTTP API together
// against a real on-disk index.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/notionrag/internal/answer"
	"github.com/hyperjump/notionrag/internal/config"
	"github.com/hyperjump/notionrag/internal/embedding"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/quota"
	"github.com/hyperjump/notionrag/internal/rag"
	"github.com/hyperjump/notionrag/internal/server"
	"github.com/hyperjump/notionrag/internal/watcher"
)

// extractiveGenerator answers with the first context chunk of the prompt, the way a
// model restricted to the notes would.
type extractiveGenerator struct{}

func (extractiveGenerator) Generate(_ context.Context, prompt string) (string, error) {
	start := strings.Index(prompt, "Context:\n")
	end := strings.LastIndex(prompt, "\n\nQuestion:")
	if start < 0 || end < start {
		return answer.FallbackMessage, nil
	}
	body := prompt[start+len("Context:\n") : end]
	first, _, _ := strings.Cut(body, answer.ContextSeparator)
	return "From your notes: " + first, nil
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

func newPipeline(t *testing.T, cfg *config.Config) *rag.Pipeline {
	t.Helper()
	p, err := rag.New(cfg, rag.Deps{
		Embedder:  embedding.NewMockEmbedder(cfg.Embedding.Dimensions),
		Generator: extractiveGenerator{},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

type queryResult struct {
	Answer    string `json:"answer"`
	Error     string `json:"error"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

func postQuery(t *testing.T, url, user, question string) (int, queryResult) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"question": question})
	req, err := http.NewRequest(http.MethodPost, url+"/api/v1/query", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Email", user)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out queryResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func TestIntegration_AskOverHTTP(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	p := newPipeline(t, cfg)

	limiter := quota.NewLimiter(quota.NewJSONStore(filepath.Join(t.TempDir(), "usage.json"), nil), 2)
	defer limiter.Close()
	srv := server.NewServer(p, limiter, &config.ServerConfig{UserHeader: "X-User-Email"}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// no index yet: nothing is counted
	status, res := postQuery(t, ts.URL, "ana@example.com", "How long is a coaching session?")
	if status != http.StatusServiceUnavailable || res.Error != answer.NoIndexMessage {
		t.Fatalf("before ingest: %d %+v", status, res)
	}

	if _, err := p.Index(ctx, notes()); err != nil {
		t.Fatal(err)
	}

	status, res = postQuery(t, ts.URL, "ana@example.com", "How long is a coaching session?")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %+v", status, res)
	}
	if !strings.Contains(res.Answer, "45 minutes") {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.Used != 1 || res.Remaining != 1 {
		t.Errorf("usage = %+v", res)
	}

	status, res = postQuery(t, ts.URL, "ana@example.com", "What is the capital of France?")
	if status != http.StatusOK || res.Answer != answer.FallbackMessage {
		t.Errorf("unrelated question: %d %q", status, res.Answer)
	}

	status, res = postQuery(t, ts.URL, "ana@example.com", "How should I ask for a promotion?")
	if status != http.StatusTooManyRequests {
		t.Fatalf("third question status = %d", status)
	}
	if res.Error != quota.LimitMessage(2) {
		t.Errorf("limit message = %q", res.Error)
	}

	status, res = postQuery(t, ts.URL, "ben@example.com", "How should I ask for a promotion?")
	if status != http.StatusOK || !strings.Contains(res.Answer, "promotion") {
		t.Errorf("other user: %d %q", status, res.Answer)
	}
}

func TestIntegration_ReloadAfterRebuild(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := newPipeline(t, cfg)
	if _, err := writer.Index(ctx, notes()[:1]); err != nil {
		t.Fatal(err)
	}

	reader := newPipeline(t, cfg)
	if err := reader.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if chunks, _ := reader.Retrieve(ctx, "promotion impact"); len(chunks) != 0 {
		t.Fatalf("career note should not be indexed yet, got %d chunks", len(chunks))
	}

	reloaded := make(chan struct{}, 4)
	w := watcher.NewWatcher(cfg.Index.Dir, func() {
		if err := reader.Reload(ctx); err == nil {
			reloaded <- struct{}{}
		}
	}, watcher.WithDebounce(20*time.Millisecond))
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := writer.Index(ctx, notes()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("index was not reloaded after rebuild")
	}

	chunks, err := reader.Retrieve(ctx, "promotion impact")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 || chunks[0].DocumentID != "p3" {
		t.Errorf("chunks after reload = %+v", chunks)
	}
	a, err := reader.Ask(ctx, "How should I ask for a promotion?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.Text, "documenting your impact") {
		t.Errorf("answer = %q", a.Text)
	}
}
