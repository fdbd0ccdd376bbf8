package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
index:
  dir: "./data/index"
  chunk_size: 500
notion:
  page_ids: ["abc", "def"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if want := filepath.Join(dir, "data", "index"); cfg.Index.Dir != want {
		t.Errorf("index dir = %q, want %q", cfg.Index.Dir, want)
	}
	if cfg.Index.ChunkSize != 500 || cfg.Index.Overlap() != DefaultChunkOverlap {
		t.Errorf("chunking = %d/%d", cfg.Index.ChunkSize, cfg.Index.Overlap())
	}
	if len(cfg.Notion.PageIDs) != 2 {
		t.Errorf("page ids = %v", cfg.Notion.PageIDs)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_zeroOverlap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("index:\n  chunk_size: 400\n  chunk_overlap: 0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Index.Overlap() != 0 {
		t.Errorf("overlap = %d, want an explicit 0 kept", cfg.Index.Overlap())
	}
	cfg.Notion.APIKey = "n"
	cfg.OpenAI.APIKey = "sk-1"
	if err := cfg.ValidateIngest(); err != nil {
		t.Errorf("zero overlap should be valid: %v", err)
	}
}

func TestLoad_toml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
debug = true

[llm]
provider = "gemini"

[retrieval]
k = 4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Retrieval.K != 4 {
		t.Errorf("k = %d", cfg.Retrieval.K)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("index: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Index.ChunkSize != 800 || cfg.Index.Overlap() != 150 {
		t.Errorf("chunk defaults = %d/%d", cfg.Index.ChunkSize, cfg.Index.Overlap())
	}
	if cfg.Index.Collection != "notion_rag" {
		t.Errorf("collection = %q", cfg.Index.Collection)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.Temperature != 0 {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Retrieval.K != 8 || cfg.Retrieval.PreviewChars != 200 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
	if cfg.Quota.DailyLimit != 10 {
		t.Errorf("daily limit = %d", cfg.Quota.DailyLimit)
	}
	if !cfg.Server.WatchIndexOrDefault() {
		t.Error("watch index should default to true")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvNotionAPIKey:       "ntn_abc",
		EnvOpenAIAPIKey:       "sk-test",
		EnvNotionPageIDs:      " id1, ,id2 ",
		EnvNotionDataSourceID: "ds-1",
		EnvDailyLimit:         "3",
	}
	cfg := Default()
	cfg.Notion.DatabaseID = "from-file"
	applyEnv(cfg, func(k string) string { return env[k] })

	if cfg.Notion.APIKey != "ntn_abc" || cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("keys not applied: %+v %+v", cfg.Notion, cfg.OpenAI)
	}
	if len(cfg.Notion.PageIDs) != 2 || cfg.Notion.PageIDs[0] != "id1" || cfg.Notion.PageIDs[1] != "id2" {
		t.Errorf("page ids = %v", cfg.Notion.PageIDs)
	}
	if cfg.Notion.DatabaseID != "from-file" {
		t.Errorf("unset env should keep file value, got %q", cfg.Notion.DatabaseID)
	}
	if cfg.Notion.DataSourceID != "ds-1" {
		t.Errorf("data source = %q", cfg.Notion.DataSourceID)
	}
	if cfg.Quota.DailyLimit != 3 {
		t.Errorf("daily limit = %d", cfg.Quota.DailyLimit)
	}
}

func TestLoadDotEnv_missingFileIgnored(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		check   func(*Config) error
		setting string
		wantErr bool
	}{
		{
			name:    "ingest without notion key",
			mutate:  func(c *Config) { c.OpenAI.APIKey = "sk-1" },
			check:   (*Config).ValidateIngest,
			setting: EnvNotionAPIKey,
			wantErr: true,
		},
		{
			name:    "ingest without openai key",
			mutate:  func(c *Config) { c.Notion.APIKey = "ntn_1" },
			check:   (*Config).ValidateIngest,
			setting: EnvOpenAIAPIKey,
			wantErr: true,
		},
		{
			name:    "query with notion token in openai slot",
			mutate:  func(c *Config) { c.OpenAI.APIKey = "secret_abc" },
			check:   (*Config).ValidateQuery,
			wantErr: true,
		},
		{
			name:    "query with gemini missing key",
			mutate:  func(c *Config) { c.OpenAI.APIKey = "sk-1"; c.LLM.Provider = "gemini" },
			check:   (*Config).ValidateQuery,
			setting: EnvGeminiAPIKey,
			wantErr: true,
		},
		{
			name:    "overlap not smaller than size",
			mutate:  func(c *Config) { c.Notion.APIKey = "n"; c.OpenAI.APIKey = "sk-1"; overlap := 800; c.Index.ChunkOverlap = &overlap },
			check:   (*Config).ValidateIngest,
			wantErr: true,
		},
		{
			name:    "mock embedder needs no key for ingest",
			mutate:  func(c *Config) { c.Notion.APIKey = "n"; c.Embedding.Provider = "mock" },
			check:   (*Config).ValidateIngest,
			wantErr: false,
		},
		{
			name:    "valid query",
			mutate:  func(c *Config) { c.OpenAI.APIKey = "sk-1" },
			check:   (*Config).ValidateQuery,
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := tt.check(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.setting != "" {
				var missing *MissingSettingError
				if !errors.As(err, &missing) || missing.Setting != tt.setting {
					t.Errorf("expected missing %s, got %v", tt.setting, err)
				}
				if err.Error() != tt.setting+" required" {
					t.Errorf("message = %q", err.Error())
				}
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	if got := expandPath("/abs/x", "/cfg"); got != "/abs/x" {
		t.Errorf("abs: %q", got)
	}
	if got := expandPath("./x", "/cfg"); got != filepath.Join("/cfg", "x") {
		t.Errorf("dot-slash: %q", got)
	}
	if got := expandPath("rel/x", "/cfg"); got != "rel/x" {
		t.Errorf("relative: %q", got)
	}
	if got := expandPath("", "/cfg"); got != "" {
		t.Errorf("empty: %q", got)
	}
}

func TestSave_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Retrieval.K = 3
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieval.K != 3 {
		t.Errorf("k = %d", loaded.Retrieval.K)
	}
}

func TestValidateQuery_minScore(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "sk-1"
	cfg.Retrieval.MinScore = 1.5
	if err := cfg.ValidateQuery(); err == nil {
		t.Error("expected error for min_score >= 1")
	}
	cfg.Retrieval.MinScore = 0.2
	if err := cfg.ValidateQuery(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestApplyDefaults_ollama(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Provider: "ollama"}}
	ApplyDefaults(cfg)
	if cfg.Embedding.Model != "nomic-embed-text" || cfg.Embedding.Dimensions != 768 {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
}
