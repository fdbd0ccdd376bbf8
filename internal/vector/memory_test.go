package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func records(ids []string, vecs [][]float32) []Record {
	out := make([]Record, len(ids))
	for i := range ids {
		out[i] = Record{ID: ids[i], Vector: vecs[i]}
	}
	return out
}

func size(t *testing.T, idx VectorIndex) int {
	t.Helper()
	n, err := idx.Size(context.Background())
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	return n
}

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, records([]string{"a", "b", "c"}, vecs)); err != nil {
		t.Fatal(err)
	}
	if size(t, idx) != 3 {
		t.Errorf("Size=%d", size(t, idx))
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("order = %v", results)
	}
}

func TestMemoryIndex_searchBounds(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()

	got, err := idx.Search(ctx, []float32{1, 0}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("empty index should return an empty slice, got %#v", got)
	}

	_ = idx.Add(ctx, records([]string{"x"}, [][]float32{{1, 0}}))
	got, _ = idx.Search(ctx, []float32{1, 0}, 8)
	if len(got) != 1 {
		t.Errorf("expected 1 result when index has fewer than k, got %d", len(got))
	}
}

func TestMemoryIndex_tiesAreDeterministic(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, records([]string{"p", "q", "r"}, [][]float32{{0, 1}, {0, 1}, {0, 1}}))
	for i := 0; i < 5; i++ {
		got, _ := idx.Search(ctx, []float32{0, 1}, 3)
		if got[0].ID != "p" || got[1].ID != "q" || got[2].ID != "r" {
			t.Fatalf("tie order changed: %v", got)
		}
	}
}

func TestMemoryIndex_dimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, records([]string{"a", "b"}, [][]float32{{1, 0}, {1, 0, 0}})); err == nil {
		t.Error("expected dimension error")
	}
	if size(t, idx) != 0 {
		t.Error("no record should be stored when validation fails")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected query dimension error")
	}
}

func TestMemoryIndex_Reset(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, records([]string{"x", "y"}, [][]float32{{1, 0}, {0, 1}}))
	if err := idx.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if size(t, idx) != 0 {
		t.Errorf("expected size 0, got %d", size(t, idx))
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	idx, _ := NewMemoryIndex(3)
	_ = idx.Add(ctx, records([]string{"chunk-1", "chunk-2"}, [][]float32{{0.6, 0.8, 0}, {0, 0, 1}}))
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(3)
	if err := loaded.Load(dir); err != nil {
		t.Fatal(err)
	}
	if size(t, loaded) != 2 {
		t.Fatalf("Size=%d", size(t, loaded))
	}
	got, _ := loaded.Search(ctx, []float32{0, 0, 1}, 1)
	if got[0].ID != "chunk-2" || got[0].Score < 0.99 {
		t.Errorf("unexpected hit %+v", got[0])
	}

	wrongDim, _ := NewMemoryIndex(4)
	if err := wrongDim.Load(dir); err == nil {
		t.Error("expected dimension mismatch on load")
	}
}

func TestMemoryIndex_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	idx, _ := NewMemoryIndex(2)
	if err := idx.Load(dir); err == nil {
		t.Error("expected error for missing file")
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := idx.Load(dir); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 2}, []float32{3, 4}); got != 11 {
		t.Errorf("got %v", got)
	}
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths should be 0, got %v", got)
	}
}
