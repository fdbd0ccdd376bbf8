package vector

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backend names a vector index implementation.
type Backend string

const (
	// BackendMemory keeps vectors in memory and persists them in the index directory.
	BackendMemory Backend = "memory"
	// BackendChroma stores vectors in a Chroma server collection.
	BackendChroma Backend = "chroma"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Dimensions int
	ChromaURL  string
	Collection string
	Logger     *zap.Logger
}

// NewVectorIndex creates an empty index for the configured backend.
func NewVectorIndex(ctx context.Context, opts Options) (VectorIndex, error) {
	switch Backend(opts.Backend) {
	case BackendMemory, "":
		return NewMemoryIndex(opts.Dimensions)
	case BackendChroma:
		return NewChromaIndex(ctx, opts.ChromaURL, opts.Collection, opts.Dimensions, WithChromaLogger(opts.Logger))
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: memory, chroma)", opts.Backend)
	}
}

// OpenVectorIndex opens the index persisted under dir.
func OpenVectorIndex(ctx context.Context, dir string, opts Options) (VectorIndex, error) {
	idx, err := NewVectorIndex(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := idx.Load(dir); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}
