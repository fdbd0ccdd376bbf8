// Package answer turns a question and its retrieved note chunks into a coaching-style reply.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/models"
)

// User-facing messages.
const (
	FallbackMessage = "I'd love to help, but I don't have notes on that yet. Try asking about coaching, career, mindset, or manifesting."
	NoIndexMessage  = "No knowledge base found. Run ingest first to index your Notion notes."
	errorPrefix     = "Sorry, something went wrong: "
)

// ContextSeparator joins retrieved chunk texts in the prompt.
const ContextSeparator = "\n\n---\n\n"

// PromptTemplate is the single-turn prompt. It takes {context} and {question}.
const PromptTemplate = `You are a warm, supportive life and career coach. Answer the question using the context from your Notion notes below.

Tone: Be warm, empathetic, and encouraging, like a trusted friend or coach. Use "you" and "your" to make it personal. Add a brief supportive touch when it fits (e.g., "I'm glad you're asking," "That's a great question"). Keep it genuine, not over-the-top.

Rules: Use only information from the context and do not invent anything. If the context has relevant info, answer based on it in your warm voice. Only reply with "` + FallbackMessage + `" if the context truly has nothing related.

Context:
{context}

Question: {question}

Answer:`

// GenerationError wraps a failure of the generation service.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generation failed: " + e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// SafeMessage converts an error into the message shown to users in place of an answer.
func SafeMessage(err error) string {
	var ge *GenerationError
	if errors.As(err, &ge) {
		err = ge.Err
	}
	return errorPrefix + err.Error()
}

// Composer builds prompts from retrieved chunks and calls the Generator.
// Each call is independent; no conversation history is kept.
type Composer struct {
	gen    Generator
	prompt prompts.PromptTemplate
	logger *zap.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) ComposerOption {
	return func(c *Composer) { c.logger = l }
}

// NewComposer returns a composer that generates with gen.
func NewComposer(gen Generator, opts ...ComposerOption) *Composer {
	c := &Composer{
		gen:    gen,
		prompt: prompts.PromptTemplate{
			Template:       PromptTemplate,
			InputVariables: []string{"context", "question"},
			TemplateFormat: prompts.TemplateFormatFString,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildPrompt renders the prompt for question with the chunk texts as context.
func (c *Composer) BuildPrompt(question string, chunks []models.RetrievedChunk) (string, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	p, err := c.prompt.Format(map[string]any{
		"context":  strings.Join(texts, ContextSeparator),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return p, nil
}

// Generate returns the model's answer. Errors from the generation service come back
// as *GenerationError. With no chunks the fallback is returned without calling the model.
func (c *Composer) Generate(ctx context.Context, question string, chunks []models.RetrievedChunk) (string, error) {
	if len(chunks) == 0 {
		return FallbackMessage, nil
	}
	p, err := c.BuildPrompt(question, chunks)
	if err != nil {
		return "", err
	}
	text, err := c.gen.Generate(ctx, p)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	return strings.TrimSpace(text), nil
}

// Answer is Generate with failures converted to a safe message. It never returns an error.
func (c *Composer) Answer(ctx context.Context, question string, chunks []models.RetrievedChunk) models.Answer {
	a := models.Answer{Question: question, Chunks: chunks}
	text, err := c.Generate(ctx, question, chunks)
	if err != nil {
		c.logger.Error("answer generation failed", zap.Error(err))
		a.Text = SafeMessage(err)
		a.Failed = true
		return a
	}
	a.Text = text
	return a
}
