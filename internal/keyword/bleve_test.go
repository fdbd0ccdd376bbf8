package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/notionrag/internal/models"
)

func newTestIndex(t *testing.T) (*BleveIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DirName)
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	return idx, path
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx, _ := newTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	doc := &models.Document{
		ID:      "page-1",
		Title:   "Coaching FAQ",
		Content: "Sessions last 45 minutes. We use the GROW model for goal setting.",
	}
	if err := idx.Index(ctx, doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "grow", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "page-1" {
		t.Fatalf("results = %+v", results)
	}
}

func TestBleveIndex_IndexBatchAndTitleBoost(t *testing.T) {
	idx, _ := newTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	docs := []models.Document{
		{ID: "a", Title: "Mindset journal", Content: "Notes about habits and routines."},
		{ID: "b", Title: "Weekly review", Content: "A growth mindset helps with feedback. Mindset matters."},
		{ID: "c", Title: "Recipes", Content: "Pasta and bread."},
	}
	if err := idx.IndexBatch(ctx, docs); err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
	if n, _ := idx.DocCount(); n != 3 {
		t.Fatalf("DocCount = %d", n)
	}

	results, err := idx.Search(ctx, "mindset", 10, &SearchOptions{TitleBoost: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if results[0].ID != "a" {
		t.Errorf("title match should rank first, got %q", results[0].ID)
	}
}

func TestBleveIndex_coveragePenalty(t *testing.T) {
	idx, _ := newTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	_ = idx.IndexBatch(ctx, []models.Document{
		{ID: "both", Title: "Plan", Content: "career coaching plan"},
		{ID: "one", Title: "Career", Content: "career career career"},
	})
	results, err := idx.Search(ctx, "career coaching", 10, &SearchOptions{TitleBoost: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "both" {
		t.Errorf("note matching every term should rank first: %+v", results)
	}
}

func TestBleveIndex_fuzzy(t *testing.T) {
	idx, _ := newTestIndex(t)
	defer idx.Close()

	ctx := context.Background()
	_ = idx.Index(ctx, &models.Document{ID: "m", Title: "Manifesting", Content: "visualization practice"})

	if res, _ := idx.Search(ctx, "visualisation", 10, nil); len(res) != 0 {
		t.Errorf("exact search should miss the typo, got %+v", res)
	}
	res, err := idx.Search(ctx, "visualisation", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Errorf("fuzzy search should match, got %+v", res)
	}
}

func TestBleveIndex_emptyQuery(t *testing.T) {
	idx, _ := newTestIndex(t)
	defer idx.Close()
	res, err := idx.Search(context.Background(), "   ", 10, nil)
	if err != nil || res == nil || len(res) != 0 {
		t.Errorf("res=%v err=%v", res, err)
	}
}

func TestNewBleveIndex_replacesExisting(t *testing.T) {
	idx1, path := newTestIndex(t)
	ctx := context.Background()
	_ = idx1.Index(ctx, &models.Document{ID: "doc1", Title: "T", Content: "uniqueword"})
	if err := idx1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex (existing path): %v", err)
	}
	defer idx2.Close()
	results, _ := idx2.Search(ctx, "uniqueword", 10, nil)
	if len(results) != 0 {
		t.Errorf("expected a fresh index, got %d results", len(results))
	}
}

func TestOpenBleveIndex_readOnly(t *testing.T) {
	idx, path := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, &models.Document{ID: "doc1", Title: "Career", Content: "promotion"})
	_ = idx.Close()

	ro, err := OpenBleveIndex(path)
	if err != nil {
		t.Fatalf("OpenBleveIndex: %v", err)
	}
	defer ro.Close()
	res, err := ro.Search(ctx, "promotion", 5, nil)
	if err != nil || len(res) != 1 {
		t.Errorf("res=%v err=%v", res, err)
	}

	if _, err := OpenBleveIndex(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing index")
	}
}

func TestNewBleveIndex_createsDir(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "sub", DirName)
	idx, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	_ = idx.Close()
	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index path should exist: %v", err)
	}
}
