package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ingest.ChunkSize != 1500 {
		t.Errorf("expected ChunkSize=1500, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.BatchSize != 50 {
		t.Errorf("expected BatchSize=50, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.MaxKeywords != 5 {
		t.Errorf("expected MaxKeywords=5, got %d", cfg.Retrieve.MaxKeywords)
	}
	if cfg.LLM.TimeoutSec != 30 {
		t.Errorf("expected TimeoutSec=30, got %d", cfg.LLM.TimeoutSec)
	}
	if cfg.LLM.Temperature != 0.1 {
		t.Errorf("expected Temperature=0.1, got %v", cfg.LLM.Temperature)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "greencheck.yaml")

	content := `
store:
  driver: sqlite
  path: data/corpus.sqlite
ingest:
  chunk_size: 800
retrieve:
  top_k: 5
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected Driver=sqlite, got %s", cfg.Store.Driver)
	}
	if cfg.Ingest.ChunkSize != 800 {
		t.Errorf("expected ChunkSize=800, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.BatchSize != 50 {
		t.Errorf("expected untouched BatchSize=50, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "greencheck.yaml")
	if err := os.WriteFile(configPath, []byte("store: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".greencheck"), 0755); err != nil {
		t.Fatal(err)
	}

	content := `
corpus:
  source_tag: ACME_2025
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".greencheck", "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Corpus.SourceTag != "ACME_2025" {
		t.Errorf("expected SourceTag=ACME_2025, got %s", cfg.Corpus.SourceTag)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greencheck.yaml")
	cfg := DefaultConfig()
	cfg.LLM.Model = "gpt-4o-mini"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected saved model, got %s", loaded.LLM.Model)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"memory store", func(c *Config) { c.Store.Driver = "memory" }, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }, true},
		{"empty source tag", func(c *Config) { c.Corpus.SourceTag = "" }, true},
		{"zero chunk size", func(c *Config) { c.Ingest.ChunkSize = 0 }, true},
		{"zero batch size", func(c *Config) { c.Ingest.BatchSize = 0 }, true},
		{"zero temperature", func(c *Config) { c.LLM.Temperature = 0 }, false},
		{"negative temperature", func(c *Config) { c.LLM.Temperature = -0.5 }, true},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GREENCHECK_TEST_KEY", "from-env")

	l := LLMConfig{APIKeyEnv: "GREENCHECK_TEST_KEY"}
	if got := l.ResolveAPIKey(); got != "from-env" {
		t.Errorf("expected key from env, got %q", got)
	}

	l.APIKey = "explicit"
	if got := l.ResolveAPIKey(); got != "explicit" {
		t.Errorf("expected explicit key to win, got %q", got)
	}

	if got := (LLMConfig{}).ResolveAPIKey(); got != "" {
		t.Errorf("expected empty key, got %q", got)
	}
}

func TestStorePath(t *testing.T) {
	cfg := DefaultConfig()
	path := cfg.StorePath("/srv/app")
	expected := filepath.Join("/srv/app", ".greencheck", "corpus.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Store.Path = "/var/lib/greencheck.db"
	if got := cfg.StorePath("/srv/app"); got != "/var/lib/greencheck.db" {
		t.Errorf("expected absolute path unchanged, got %s", got)
	}
}
