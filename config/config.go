package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the greenwashing checker.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Retrieve RetrieveConfig `yaml:"retrieve"`
	LLM      LLMConfig      `yaml:"llm"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	ShutdownTimeoutSec int      `yaml:"shutdown_timeout_sec"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
}

// StoreConfig selects and locates the corpus store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "bolt", "sqlite", "postgres", "memory"
	Path   string `yaml:"path"`   // file path for bolt and sqlite
	DSN    string `yaml:"dsn"`    // connection string for postgres
}

// CorpusConfig describes the reference corpus checked against.
type CorpusConfig struct {
	SourceTag string `yaml:"source_tag"`
	Name      string `yaml:"name"`
	Year      int    `yaml:"year"`
}

// IngestConfig holds ingestion configuration.
type IngestConfig struct {
	ChunkSize       int  `yaml:"chunk_size"`
	BatchSize       int  `yaml:"batch_size"`
	HashPrefix      int  `yaml:"hash_prefix"`
	SerializePerTag bool `yaml:"serialize_per_tag"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	MaxKeywords    int     `yaml:"max_keywords"`
	KeywordResults int     `yaml:"keyword_results"`
	MinKeywordLen  int     `yaml:"min_keyword_len"`
	SampleSize     int     `yaml:"sample_size"`
	K1             float64 `yaml:"k1"`
	B              float64 `yaml:"b"`
	CacheTTLSec    int     `yaml:"cache_ttl_sec"` // 0 disables the retrieval cache
}

// LLMConfig holds the remote reasoning service configuration.
type LLMConfig struct {
	Provider          string  `yaml:"provider"` // "openai" (any OpenAI-compatible API) or "" to disable
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"api_key,omitempty"`
	APIKeyEnv         string  `yaml:"api_key_env"` // Environment variable for API key
	TimeoutSec        int     `yaml:"timeout_sec"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8080",
			ShutdownTimeoutSec: 5,
			AllowedOrigins:     []string{"*"},
		},
		Store: StoreConfig{
			Driver: "bolt",
			Path:   filepath.Join(".greencheck", "corpus.db"),
		},
		Corpus: CorpusConfig{
			SourceTag: "PG_AR_2024",
			Name:      "P&G Annual Report 2024",
			Year:      2024,
		},
		Ingest: IngestConfig{
			ChunkSize:       1500,
			BatchSize:       50,
			HashPrefix:      1000,
			SerializePerTag: true,
		},
		Retrieve: RetrieveConfig{
			TopK:           10,
			MaxKeywords:    5,
			KeywordResults: 3,
			MinKeywordLen:  4,
			SampleSize:     5,
			K1:             1.2,
			B:              0.75,
			CacheTTLSec:    300,
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "llama-3.1-70b-versatile",
			BaseURL:           "https://api.groq.com/openai/v1",
			APIKeyEnv:         "GROQ_API_KEY",
			TimeoutSec:        30,
			Temperature:       0.1,
			MaxTokens:         2000,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for greencheck.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "greencheck.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".greencheck", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "bolt", "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", c.Store.Driver)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}
	if c.Corpus.SourceTag == "" {
		return fmt.Errorf("corpus.source_tag is required")
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	return nil
}

// ResolveAPIKey returns the explicit key or, failing that, the key from APIKeyEnv.
// An empty result means the remote verifier is disabled.
func (l LLMConfig) ResolveAPIKey() string {
	if l.APIKey != "" {
		return l.APIKey
	}
	if l.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(l.APIKeyEnv)
}

// StorePath resolves the store file path relative to dir.
func (c *Config) StorePath(dir string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(dir, c.Store.Path)
}

// EnsureStoreDir ensures the directory holding the store file exists.
func EnsureStoreDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
