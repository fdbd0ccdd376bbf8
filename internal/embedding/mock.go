package embedding

import (
	"context"
	"strconv"

	"github.com/hyperjump/notionrag/pkg/utils"
)

const defaultMockDimensions = 384

// MockEmbedder embeds offline by feature hashing: each content term adds one
// to a hashed bucket and the counts are scaled to unit length. Texts sharing
// terms score above zero and identical texts score 1.
type MockEmbedder struct {
	dims int
}

func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = defaultMockDimensions
	}
	return &MockEmbedder{dims: dimensions}
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *MockEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	for _, t := range Terms(text) {
		v[HashString(t)%e.dims]++
	}
	utils.NormalizeL2(v)
	return v
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *MockEmbedder) Dimensions() int { return e.dims }

// Model names the hashing scheme and width, so an index built with another
// width is detected as a different model.
func (e *MockEmbedder) Model() string { return "mock-hash-" + strconv.Itoa(e.dims) }

func (e *MockEmbedder) Close() error { return nil }
