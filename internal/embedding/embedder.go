// Package embedding turns text into vectors. Providers are OpenAI and Ollama
// (through langchaingo), Gemini, a local ONNX model, and a deterministic mock.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Model identifies the embedding model. An index built with one model
	// cannot be queried with another.
	Model() string
	Close() error
}

func checkDimensions(vecs [][]float32, dims int) error {
	for i, v := range vecs {
		if len(v) != dims {
			return &DimensionError{Index: i, Got: len(v), Want: dims}
		}
	}
	return nil
}
