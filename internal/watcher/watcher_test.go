package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_swapTriggersReload(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "rag_index")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := NewWatcher(dir, func() { calls.Add(1) }, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	staging := filepath.Join(root, "rag_index.staging-1")
	if err := os.MkdirAll(staging, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(dir, filepath.Join(root, "rag_index.old-1")); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(staging, dir); err != nil {
		t.Fatal(err)
	}
	_ = os.RemoveAll(filepath.Join(root, "rag_index.old-1"))

	if !waitFor(t, func() bool { return calls.Load() == 1 }) {
		t.Fatalf("onChange calls = %d, want 1", calls.Load())
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("events should be debounced into one call, got %d", n)
	}
}

func TestWatcher_ignoresOtherEntries(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "rag_index")

	var calls atomic.Int32
	w := NewWatcher(dir, func() { calls.Add(1) }, WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "prompt_usage.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "rag_index.staging-2"), 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("unrelated entries triggered %d reloads", n)
	}
}

func TestWatcher_createsMissingParent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "rag_index")
	w := NewWatcher(dir, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
	if _, err := os.Stat(filepath.Dir(dir)); err != nil {
		t.Errorf("parent not created: %v", err)
	}
}

func TestWatcher_stopOnContextCancel(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	w := NewWatcher(filepath.Join(root, "idx"), func() { calls.Add(1) }, WithDebounce(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	time.Sleep(50 * time.Millisecond)
	_ = os.MkdirAll(filepath.Join(root, "idx"), 0755)
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("stopped watcher should not fire")
	}
}
