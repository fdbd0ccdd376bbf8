// Package config provides configuration loading and structs for notionrag.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" toml:"debug"`
	Notion    NotionConfig    `yaml:"notion" toml:"notion"`
	OpenAI    OpenAIConfig    `yaml:"openai" toml:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini" toml:"gemini"`
	Index     IndexConfig     `yaml:"index" toml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval" toml:"retrieval"`
	Quota     QuotaConfig     `yaml:"quota" toml:"quota"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
}

// NotionConfig holds Notion API access and the default source selection.
type NotionConfig struct {
	APIKey            string   `yaml:"api_key" toml:"api_key"`
	BaseURL           string   `yaml:"base_url" toml:"base_url"`
	Version           string   `yaml:"version" toml:"version"`
	PageIDs           []string `yaml:"page_ids" toml:"page_ids"`
	DatabaseID        string   `yaml:"database_id" toml:"database_id"`
	DataSourceID      string   `yaml:"data_source_id" toml:"data_source_id"`
	RequestsPerSecond float64  `yaml:"requests_per_second" toml:"requests_per_second"`
	TimeoutSeconds    int      `yaml:"timeout_seconds" toml:"timeout_seconds"`
	MaxRetries        int      `yaml:"max_retries" toml:"max_retries"`
	MaxDepth          int      `yaml:"max_depth" toml:"max_depth"`
	// ExtractAttachments pulls text out of pdf/file blocks (PDF, XLSX, plain text).
	ExtractAttachments bool  `yaml:"extract_attachments" toml:"extract_attachments"`
	MaxAttachmentBytes int64 `yaml:"max_attachment_bytes" toml:"max_attachment_bytes"`
}

// OpenAIConfig holds credentials shared by the OpenAI embedder and generator.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" toml:"api_key"`
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// GeminiConfig holds credentials shared by the Gemini embedder and generator.
type GeminiConfig struct {
	APIKey string `yaml:"api_key" toml:"api_key"`
}

// IndexConfig holds the persisted index location and chunking settings.
type IndexConfig struct {
	Dir           string `yaml:"dir" toml:"dir"`
	Collection    string `yaml:"collection" toml:"collection"`
	ChunkSize     int    `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap  *int   `yaml:"chunk_overlap" toml:"chunk_overlap"`
	VectorBackend string `yaml:"vector_backend" toml:"vector_backend"`
	ChromaURL     string `yaml:"chroma_url" toml:"chroma_url"`
	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
}

// Overlap returns the chunk overlap. Unset means DefaultChunkOverlap; an explicit 0
// disables overlap.
func (c *IndexConfig) Overlap() int {
	if c.ChunkOverlap != nil {
		return *c.ChunkOverlap
	}
	return DefaultChunkOverlap
}

// EmbeddingConfig selects the embedding provider. The same settings must be used
// for ingest and query; the index records the model it was built with.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" toml:"provider"`
	Model      string `yaml:"model" toml:"model"`
	Dimensions int    `yaml:"dimensions" toml:"dimensions"`
	BaseURL    string `yaml:"base_url" toml:"base_url"`
	ModelPath  string `yaml:"model_path" toml:"model_path"`
	MaxTokens  int    `yaml:"max_tokens" toml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size" toml:"cache_size"`
}

// LLMConfig selects the generation provider.
type LLMConfig struct {
	Provider       string  `yaml:"provider" toml:"provider"`
	Model          string  `yaml:"model" toml:"model"`
	Temperature    float64 `yaml:"temperature" toml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// RetrievalConfig holds query-time retrieval settings.
type RetrievalConfig struct {
	K            int `yaml:"k" toml:"k"`
	PreviewChars int `yaml:"preview_chars" toml:"preview_chars"`
	// MinScore drops retrieved chunks at or below this similarity. 0 disables it.
	MinScore float64 `yaml:"min_score" toml:"min_score"`
}

// QuotaConfig selects the per-user daily usage store.
type QuotaConfig struct {
	Backend       string `yaml:"backend" toml:"backend"`
	Path          string `yaml:"path" toml:"path"`
	DSN           string `yaml:"dsn" toml:"dsn"`
	RedisAddr     string `yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string `yaml:"redis_password" toml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" toml:"redis_db"`
	DailyLimit    int    `yaml:"daily_limit" toml:"daily_limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string `yaml:"host" toml:"host"`
	Port       int    `yaml:"port" toml:"port"`
	JWTSecret  string `yaml:"jwt_secret" toml:"jwt_secret"`
	UserHeader string `yaml:"user_header" toml:"user_header"`
	WatchIndex *bool  `yaml:"watch_index" toml:"watch_index"`
}

// WatchIndexOrDefault returns whether the server reloads the index on rebuild; defaults to true.
func (s *ServerConfig) WatchIndexOrDefault() bool {
	if s.WatchIndex != nil {
		return *s.WatchIndex
	}
	return true
}

// Default returns a config with only defaults applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Files ending in .toml are parsed as TOML; everything else as YAML.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Index.Dir = expandPath(cfg.Index.Dir, configDir)
	cfg.Quota.Path = expandPath(cfg.Quota.Path, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath resolves a config path. Paths starting with "./" (or ".") are relative to
// configDir, "~/" is the home directory, and other relative paths are left as given
// so they resolve against the working directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
