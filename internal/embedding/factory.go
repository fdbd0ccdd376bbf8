package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/config"
)

// DefaultBatchSize is the number of texts sent per provider request.
const DefaultBatchSize = 64

// Options configures an embedder.
type Options struct {
	Provider   string
	Model      string
	Dimensions int
	APIKey     string
	BaseURL    string
	ModelPath  string
	MaxTokens  int
	CacheSize  int
	BatchSize  int
	Logger     *zap.Logger
}

// OptionsFromConfig picks the provider settings and credentials out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BaseURL:    cfg.Embedding.BaseURL,
		ModelPath:  cfg.Embedding.ModelPath,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		BatchSize:  cfg.Index.BatchSize,
	}
	switch opts.Provider {
	case "openai":
		opts.APIKey = cfg.OpenAI.APIKey
		if opts.BaseURL == "" {
			opts.BaseURL = cfg.OpenAI.BaseURL
		}
	case "gemini":
		opts.APIKey = cfg.Gemini.APIKey
	}
	return opts
}

// NewEmbedder creates the embedder named by opts.Provider, wrapped in an LRU cache.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		e   Embedder
		err error
	)
	switch opts.Provider {
	case "openai":
		e, err = NewOpenAIEmbedder(opts)
	case "ollama":
		e, err = NewOllamaEmbedder(opts)
	case "gemini":
		e, err = NewGeminiEmbedder(ctx, opts)
	case "onnx":
		e, err = NewONNXEmbedder(opts)
	case "mock":
		e = NewMockEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("embedder ready",
		zap.String("provider", opts.Provider),
		zap.String("model", e.Model()),
		zap.Int("dimensions", e.Dimensions()),
	)
	return WithCache(e, opts.CacheSize), nil
}
