package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/notionrag/internal/config"
	"github.com/hyperjump/notionrag/internal/embedding"
	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/rag"
	"github.com/hyperjump/notionrag/internal/vector"
)

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := vector.NewMemoryIndex(384)
	ctx := context.Background()
	records := make([]vector.Record, 1000)
	for i := range records {
		v := make([]float32, 384)
		v[i%384] = 1
		records[i] = vector.Record{ID: fmt.Sprintf("c%d", i), Vector: v}
	}
	_ = idx.Add(ctx, records)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 8)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "how long is a coaching session and what does it cost")
	}
}

func BenchmarkChunker_Split(b *testing.B) {
	c := indexer.NewChunker(config.DefaultChunkSize, config.DefaultChunkOverlap)
	text := strings.Repeat("Coaching sessions are 45 minutes and cost $80.\n\nA growth mindset treats setbacks as feedback. ", 200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Split(text)
	}
}

func BenchmarkPipeline_Retrieve(b *testing.B) {
	cfg := config.Default()
	cfg.Index.Dir = filepath.Join(b.TempDir(), "rag_index")
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 256
	p, err := rag.New(cfg, rag.Deps{Embedder: embedding.NewMockEmbedder(256)})
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	ctx := context.Background()
	docs := make([]models.Document, 500)
	for i := range docs {
		docs[i] = models.Document{
			ID:      fmt.Sprintf("p%d", i),
			Title:   fmt.Sprintf("Note %d", i),
			Content: fmt.Sprintf("Note %d covers coaching topic %d, career step %d and mindset habit %d.", i, i%17, i%23, i%31),
		}
	}
	if _, err := p.Index(ctx, docs); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Retrieve(ctx, "career step and mindset habit")
	}
}
