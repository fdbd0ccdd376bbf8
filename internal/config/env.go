package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names read by ApplyEnv.
const (
	EnvNotionAPIKey       = "NOTION_API_KEY"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvNotionPageIDs      = "NOTION_PAGE_IDS"
	EnvNotionDatabaseID   = "NOTION_DATABASE_ID"
	EnvNotionDataSourceID = "NOTION_DATA_SOURCE_ID"
	EnvChromaURL          = "CHROMA_URL"
	EnvIndexDir           = "NOTIONRAG_INDEX_DIR"
	EnvJWTSecret          = "NOTIONRAG_JWT_SECRET"
	EnvRedisAddr          = "REDIS_ADDR"
	EnvQuotaDSN           = "QUOTA_DSN"
	EnvDailyLimit         = "NOTIONRAG_DAILY_LIMIT"
)

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides cfg with values from the process environment.
func ApplyEnv(cfg *Config) {
	applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Notion.APIKey, EnvNotionAPIKey)
	set(&cfg.OpenAI.APIKey, EnvOpenAIAPIKey)
	set(&cfg.Gemini.APIKey, EnvGeminiAPIKey)
	set(&cfg.Notion.DatabaseID, EnvNotionDatabaseID)
	set(&cfg.Notion.DataSourceID, EnvNotionDataSourceID)
	set(&cfg.Index.ChromaURL, EnvChromaURL)
	set(&cfg.Index.Dir, EnvIndexDir)
	set(&cfg.Server.JWTSecret, EnvJWTSecret)
	set(&cfg.Quota.RedisAddr, EnvRedisAddr)
	set(&cfg.Quota.DSN, EnvQuotaDSN)

	if raw := getenv(EnvNotionPageIDs); strings.TrimSpace(raw) != "" {
		var ids []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				ids = append(ids, p)
			}
		}
		cfg.Notion.PageIDs = ids
	}
	if raw := strings.TrimSpace(getenv(EnvDailyLimit)); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.Quota.DailyLimit = n
		}
	}
}
