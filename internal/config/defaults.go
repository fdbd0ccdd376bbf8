package config

// Defaults used when a setting is left unset.
const (
	DefaultIndexDir          = "rag_index"
	DefaultCollection        = "notion_rag"
	DefaultChunkSize         = 800
	DefaultChunkOverlap      = 150
	DefaultK                 = 8
	DefaultPreviewChars      = 200
	DefaultDailyLimit        = 10
	DefaultNotionVersion     = "2025-09-03"
	DefaultNotionBaseURL     = "https://api.notion.com/v1"
	DefaultEmbeddingProvider = "openai"
	DefaultEmbeddingModel    = "text-embedding-3-small"
	DefaultLLMProvider       = "openai"
	DefaultLLMModel          = "gpt-4o-mini"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Notion.BaseURL == "" {
		cfg.Notion.BaseURL = DefaultNotionBaseURL
	}
	if cfg.Notion.Version == "" {
		cfg.Notion.Version = DefaultNotionVersion
	}
	if cfg.Notion.RequestsPerSecond == 0 {
		cfg.Notion.RequestsPerSecond = 3
	}
	if cfg.Notion.TimeoutSeconds == 0 {
		cfg.Notion.TimeoutSeconds = 30
	}
	if cfg.Notion.MaxRetries == 0 {
		cfg.Notion.MaxRetries = 3
	}
	if cfg.Notion.MaxDepth == 0 {
		cfg.Notion.MaxDepth = 32
	}
	if cfg.Notion.MaxAttachmentBytes == 0 {
		cfg.Notion.MaxAttachmentBytes = 20 << 20
	}

	if cfg.Index.Dir == "" {
		cfg.Index.Dir = DefaultIndexDir
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = DefaultCollection
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = DefaultChunkSize
	}
	if cfg.Index.VectorBackend == "" {
		cfg.Index.VectorBackend = "memory"
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 64
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultEmbeddingProvider
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "gemini":
			cfg.Embedding.Model = "text-embedding-004"
		case "openai":
			cfg.Embedding.Model = DefaultEmbeddingModel
		case "ollama":
			cfg.Embedding.Model = "nomic-embed-text"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Dimensions = openAIDimensions(cfg.Embedding.Model)
		case "gemini", "ollama":
			cfg.Embedding.Dimensions = 768
		default:
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = DefaultLLMProvider
	}
	if cfg.LLM.Model == "" {
		if cfg.LLM.Provider == "gemini" {
			cfg.LLM.Model = "gemini-2.0-flash"
		} else {
			cfg.LLM.Model = DefaultLLMModel
		}
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 60
	}

	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = DefaultK
	}
	if cfg.Retrieval.PreviewChars == 0 {
		cfg.Retrieval.PreviewChars = DefaultPreviewChars
	}

	if cfg.Quota.Backend == "" {
		cfg.Quota.Backend = "json"
	}
	if cfg.Quota.Path == "" {
		cfg.Quota.Path = "prompt_usage.json"
	}
	if cfg.Quota.DailyLimit == 0 {
		cfg.Quota.DailyLimit = DefaultDailyLimit
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UserHeader == "" {
		cfg.Server.UserHeader = "X-User-Email"
	}
}

func openAIDimensions(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}
