package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSourceSelected is returned when ingest has no page, database, or data source to read.
var ErrNoSourceSelected = errors.New("provide --page-ids, --database-id, or --data-source-id")

// MissingSettingError reports a required setting that is not configured.
type MissingSettingError struct {
	Setting string
}

func (e *MissingSettingError) Error() string {
	return e.Setting + " required"
}

// IsMissingSetting reports whether err is a MissingSettingError.
func IsMissingSetting(err error) bool {
	var m *MissingSettingError
	return errors.As(err, &m)
}

// ValidateIngest checks the settings needed to fetch from Notion and build an index.
func (c *Config) ValidateIngest() error {
	if strings.TrimSpace(c.Notion.APIKey) == "" {
		return &MissingSettingError{Setting: EnvNotionAPIKey}
	}
	if err := c.validateChunking(); err != nil {
		return err
	}
	return c.validateEmbedding()
}

// ValidateQuery checks the settings needed to retrieve and generate answers.
func (c *Config) ValidateQuery() error {
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	switch c.LLM.Provider {
	case "openai":
		return c.validateOpenAIKey()
	case "gemini":
		if c.Gemini.APIKey == "" {
			return &MissingSettingError{Setting: EnvGeminiAPIKey}
		}
	default:
		return fmt.Errorf("unknown llm provider %q (supported: openai, gemini)", c.LLM.Provider)
	}
	return nil
}

// ValidateNotion checks the settings needed for read-only Notion access.
func (c *Config) ValidateNotion() error {
	if strings.TrimSpace(c.Notion.APIKey) == "" {
		return &MissingSettingError{Setting: EnvNotionAPIKey}
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	switch c.Embedding.Provider {
	case "openai":
		return c.validateOpenAIKey()
	case "gemini":
		if c.Gemini.APIKey == "" {
			return &MissingSettingError{Setting: EnvGeminiAPIKey}
		}
	case "onnx":
		if c.Embedding.ModelPath == "" {
			return &MissingSettingError{Setting: "embedding.model_path"}
		}
	case "ollama", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: openai, gemini, ollama, onnx, mock)", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	return nil
}

func (c *Config) validateOpenAIKey() error {
	key := strings.TrimSpace(c.OpenAI.APIKey)
	if key == "" {
		return &MissingSettingError{Setting: EnvOpenAIAPIKey}
	}
	if strings.HasPrefix(key, "secret_") || strings.HasPrefix(key, "ntn_") {
		return fmt.Errorf("%s looks like a Notion token; it should be an OpenAI key (starts with sk-)", EnvOpenAIAPIKey)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval.k must be positive")
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore >= 1 {
		return fmt.Errorf("retrieval.min_score must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateChunking() error {
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive")
	}
	if overlap := c.Index.Overlap(); overlap < 0 || overlap >= c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_overlap must be between 0 and chunk_size")
	}
	return nil
}
