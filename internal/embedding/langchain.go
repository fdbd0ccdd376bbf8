package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hyperjump/notionrag/pkg/utils"
)

// LangChainEmbedder embeds through a langchaingo embeddings client (OpenAI or Ollama).
// Vectors are L2-normalized so inner product equals cosine similarity.
type LangChainEmbedder struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
}

// NewOpenAIEmbedder returns an embedder for the OpenAI embeddings API.
func NewOpenAIEmbedder(opts Options) (*LangChainEmbedder, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key", ErrMissingOption)
	}
	llmOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithEmbeddingModel(opts.Model),
	}
	if opts.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
	}
	client, err := openai.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return newLangChainEmbedder(client, opts)
}

// NewOllamaEmbedder returns an embedder backed by a local Ollama server.
func NewOllamaEmbedder(opts Options) (*LangChainEmbedder, error) {
	llmOpts := []ollama.Option{ollama.WithModel(opts.Model)}
	if opts.BaseURL != "" {
		llmOpts = append(llmOpts, ollama.WithServerURL(opts.BaseURL))
	}
	client, err := ollama.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return newLangChainEmbedder(client, opts)
}

func newLangChainEmbedder(client embeddings.EmbedderClient, opts Options) (*LangChainEmbedder, error) {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	e, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batch),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &LangChainEmbedder{embedder: e, model: opts.Model, dimensions: opts.Dimensions}, nil
}

// Embed embeds a single query text.
func (e *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if err := checkDimensions([][]float32{v}, e.dimensions); err != nil {
		return nil, err
	}
	utils.NormalizeL2(v)
	return v, nil
}

// EmbedBatch embeds document texts; the client splits them into provider batches.
func (e *LangChainEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(vecs), len(texts))
	}
	if err := checkDimensions(vecs, e.dimensions); err != nil {
		return nil, err
	}
	for _, v := range vecs {
		utils.NormalizeL2(v)
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *LangChainEmbedder) Dimensions() int { return e.dimensions }

// Model returns the embedding model name.
func (e *LangChainEmbedder) Model() string { return e.model }

// Close is a no-op; the HTTP clients hold no resources.
func (e *LangChainEmbedder) Close() error { return nil }
