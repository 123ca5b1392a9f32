// Package config provides configuration loading and structs for folio.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Collection CollectionConfig `yaml:"collection"`
	Search     SearchConfig     `yaml:"search"`
	Registry   RegistryConfig   `yaml:"registry"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	UploadDir         string `yaml:"upload_dir"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes"`
	ShutdownTimeoutMS int    `yaml:"shutdown_timeout_ms"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMS) * time.Millisecond
}

// QdrantConfig holds the vector store endpoint.
type QdrantConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	APIKey    string `yaml:"api_key"`
	UseTLS    bool   `yaml:"use_tls"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Timeout returns the per-call deadline applied to store requests.
func (q QdrantConfig) Timeout() time.Duration {
	return time.Duration(q.TimeoutMS) * time.Millisecond
}

// StoreConfig selects the vector store backend: "qdrant" or "memory".
type StoreConfig struct {
	Type string `yaml:"type"`
}

// EmbeddingConfig holds the model artifact locations and inference settings.
// Artifacts are read once, on the first embedding call.
type EmbeddingConfig struct {
	ModelDir      string `yaml:"model_dir"`
	ModelFile     string `yaml:"model_file"`
	TokenizerFile string `yaml:"tokenizer_file"`
	ConfigFile    string `yaml:"config_file"`
	SharedLibrary string `yaml:"shared_library"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	BatchSize     int    `yaml:"batch_size"`
	OutputName    string `yaml:"output_name"`
	Pooling       string `yaml:"pooling"`
	CacheSize     int    `yaml:"cache_size"`
	AllowMock     bool   `yaml:"allow_mock"`
}

// ModelPath returns the model file joined to the model directory.
func (e EmbeddingConfig) ModelPath() string { return e.artifact(e.ModelFile) }

// TokenizerPath returns the tokenizer file joined to the model directory.
func (e EmbeddingConfig) TokenizerPath() string { return e.artifact(e.TokenizerFile) }

// ConfigPath returns the model config file joined to the model directory.
func (e EmbeddingConfig) ConfigPath() string { return e.artifact(e.ConfigFile) }

func (e EmbeddingConfig) artifact(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.ModelDir, name)
}

// ChunkingConfig holds chunk assembly parameters.
type ChunkingConfig struct {
	Strategy         string `yaml:"strategy"`
	TargetSize       int    `yaml:"target_size"`
	OverlapSentences *int   `yaml:"overlap_sentences"`
	MaxTokens        int    `yaml:"max_tokens"`
	RemoveHeaders    *bool  `yaml:"remove_headers"`
	Workers          int    `yaml:"workers"`
}

// Overlap returns the sentence overlap; defaults to 1 when unset.
func (c *ChunkingConfig) Overlap() int {
	if c.OverlapSentences != nil {
		return *c.OverlapSentences
	}
	return 1
}

// RemoveHeadersOrDefault returns whether header lines are dropped; defaults to true when unset.
func (c *ChunkingConfig) RemoveHeadersOrDefault() bool {
	if c.RemoveHeaders != nil {
		return *c.RemoveHeaders
	}
	return true
}

// CollectionConfig holds the collection lifecycle policy.
type CollectionConfig struct {
	Policy      string `yaml:"policy"`
	Distance    string `yaml:"distance"`
	UpsertBatch int    `yaml:"upsert_batch"`
}

// SearchConfig holds query settings.
type SearchConfig struct {
	TopK    int `yaml:"top_k"`
	MaxTopK int `yaml:"max_top_k"`
}

// RegistryConfig holds upload registry settings. An empty Database keeps the
// registry in memory.
type RegistryConfig struct {
	Database   string `yaml:"database"`
	MaxEntries int    `yaml:"max_entries"`
}

// WatchConfig holds ingest directory watch settings.
type WatchConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Paths      []string `yaml:"paths"`
	Extensions []string `yaml:"extensions"`
	Exclude    []string `yaml:"exclude"`
	DebounceMS int      `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, applies defaults, expands paths
// and applies environment overrides.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Server.UploadDir = expandPath(cfg.Server.UploadDir, configDir)
	cfg.Embedding.ModelDir = expandPath(cfg.Embedding.ModelDir, configDir)
	if cfg.Registry.Database != "" {
		cfg.Registry.Database = expandPath(cfg.Registry.Database, configDir)
	}
	for i := range cfg.Watch.Paths {
		cfg.Watch.Paths[i] = expandPath(cfg.Watch.Paths[i], configDir)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for runs without a config file.
func Default() (*Config, error) {
	var cfg Config
	ApplyDefaults(&cfg)
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
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

// ApplyEnv overrides endpoint and credential settings from the environment.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("FOLIO_QDRANT_HOST"); v != "" {
		cfg.Qdrant.Host = v
	}
	if v := os.Getenv("FOLIO_QDRANT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FOLIO_QDRANT_PORT %q: %w", v, err)
		}
		cfg.Qdrant.Port = port
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.Qdrant.APIKey = v
	}
	if v := os.Getenv("FOLIO_MODEL_DIR"); v != "" {
		cfg.Embedding.ModelDir = v
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
