package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"

	"github.com/hyperjump/notionrag/internal/config"
)

// Generator completes a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// GeneratorOptionsFromConfig picks the LLM settings and credentials out of cfg.
func GeneratorOptionsFromConfig(cfg *config.Config) GeneratorOptions {
	opts := GeneratorOptions{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}
	switch opts.Provider {
	case "openai":
		opts.APIKey = cfg.OpenAI.APIKey
		opts.BaseURL = cfg.OpenAI.BaseURL
	case "gemini":
		opts.APIKey = cfg.Gemini.APIKey
	}
	return opts
}

// NewGenerator creates the generator named by opts.Provider.
func NewGenerator(ctx context.Context, opts GeneratorOptions) (Generator, error) {
	switch opts.Provider {
	case "openai":
		return NewOpenAIGenerator(opts)
	case "gemini":
		return NewGeminiGenerator(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (supported: openai, gemini)", opts.Provider)
	}
}

// OpenAIGenerator uses the OpenAI chat completions API through langchaingo.
type OpenAIGenerator struct {
	llm         llms.Model
	temperature float64
	timeout     time.Duration
}

// NewOpenAIGenerator creates an OpenAI generator.
func NewOpenAIGenerator(opts GeneratorOptions) (*OpenAIGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai generator: api key required")
	}
	llmOpts := []openai.Option{openai.WithToken(opts.APIKey), openai.WithModel(opts.Model)}
	if opts.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
	}
	llm, err := openai.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &OpenAIGenerator{llm: llm, temperature: opts.Temperature, timeout: opts.Timeout}, nil
}

// Generate sends the prompt as a single user message.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	return llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(g.temperature))
}

// GeminiGenerator uses the Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewGeminiGenerator creates a Gemini generator.
func NewGeminiGenerator(ctx context.Context, opts GeneratorOptions) (*GeminiGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini generator: api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:      client,
		model:       opts.Model,
		temperature: float32(opts.Temperature),
		timeout:     opts.Timeout,
	}, nil
}

// Generate sends the prompt and returns the text of the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
