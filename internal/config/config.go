// Package config loads and validates SampleVault configuration.
// Configuration is layered: built-in defaults, then the YAML config
// file, then SAMPLEVAULT_* environment variables (highest priority).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"samplevault/internal/errors"
)

// Config represents the complete SampleVault configuration.
type Config struct {
	Version     int               `yaml:"version"`
	Library     LibraryConfig     `yaml:"library"`
	Index       IndexConfig       `yaml:"index"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings"`
	Translation TranslationConfig `yaml:"translation"`
	Jobs        JobsConfig        `yaml:"jobs"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LibraryConfig configures the sample library.
type LibraryConfig struct {
	// DatabasePath is the SQLite database location.
	DatabasePath string `yaml:"database_path"`
	// Extensions are the audio file extensions registered by scan.
	Extensions []string `yaml:"extensions"`
}

// IndexConfig configures the chunked vector index.
type IndexConfig struct {
	// Dir is the directory holding shard files and the manifest.
	Dir string `yaml:"dir"`
	// BaseName prefixes the manifest and shard file names.
	BaseName string `yaml:"base_name"`
	// ChunkSize is the maximum number of vectors per shard file.
	ChunkSize int `yaml:"chunk_size"`
}

// EmbeddingsConfig configures the embedding capability.
type EmbeddingsConfig struct {
	// Provider selects the backend: "http" (local inference server) or
	// "static" (deterministic offline embeddings).
	Provider   string `yaml:"provider"`
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// TimeoutSeconds bounds one embedding request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	CacheSize      int `yaml:"cache_size"`
}

// TranslationConfig configures the translation capability.
type TranslationConfig struct {
	// Provider selects the backend: "openai" (any OpenAI-compatible
	// chat endpoint) or "noop" (returns input unchanged).
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	TargetLang string `yaml:"target_lang"`
	// TimeoutSeconds bounds one translation request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	CacheSize      int `yaml:"cache_size"`
}

// JobsConfig configures the batch job engine.
type JobsConfig struct {
	// BatchSize is the number of items pulled per runner iteration.
	BatchSize int `yaml:"batch_size"`
	// Slots is the number of concurrent background execution slots.
	Slots int `yaml:"slots"`
	// TagThreshold is the minimum cosine similarity for a tag.
	TagThreshold float64 `yaml:"tag_threshold"`
	// TagTopK caps the number of tags kept per file.
	TagTopK int `yaml:"tag_top_k"`
	// TopPerShard bounds the per-shard partial results during search.
	TopPerShard int `yaml:"top_per_shard"`
	// MaxResults caps the merged search result list.
	MaxResults int `yaml:"max_results"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// CurrentVersion is the current config schema version.
const CurrentVersion = 1

// DefaultConfigPath returns the default config file location
// (~/.samplevault/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".samplevault", "config.yaml")
	}
	return filepath.Join(home, ".samplevault", "config.yaml")
}

// DefaultDataDir returns the default data directory (~/.samplevault).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".samplevault")
	}
	return filepath.Join(home, ".samplevault")
}

// Default returns the built-in default configuration.
func Default() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Version: CurrentVersion,
		Library: LibraryConfig{
			DatabasePath: filepath.Join(dataDir, "library.db"),
			Extensions:   []string{".wav", ".aif", ".aiff", ".flac", ".mp3", ".ogg"},
		},
		Index: IndexConfig{
			Dir:       filepath.Join(dataDir, "index"),
			BaseName:  "embeddings",
			ChunkSize: 20000,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "http",
			Endpoint:       "http://localhost:9870",
			Model:          "clap-htsat-fused",
			Dimensions:     512,
			BatchSize:      32,
			TimeoutSeconds: 60,
			CacheSize:      1000,
		},
		Translation: TranslationConfig{
			Provider:       "openai",
			BaseURL:        "https://api.deepseek.com/v1",
			Model:          "deepseek-chat",
			APIKeyEnv:      "SAMPLEVAULT_API_KEY",
			TargetLang:     "en",
			TimeoutSeconds: 10,
			CacheSize:      512,
		},
		Jobs: JobsConfig{
			BatchSize:    200,
			Slots:        2,
			TagThreshold: 0.25,
			TagTopK:      3,
			TopPerShard:  50,
			MaxResults:   100,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given path, layering it over the
// defaults and applying environment overrides. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No config file: defaults + env only.
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeConfigNotFound, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("parse %s", path), err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies SAMPLEVAULT_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SAMPLEVAULT_DB"); v != "" {
		cfg.Library.DatabasePath = v
	}
	if v := os.Getenv("SAMPLEVAULT_INDEX_DIR"); v != "" {
		cfg.Index.Dir = v
	}
	if v := os.Getenv("SAMPLEVAULT_EMBED_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("SAMPLEVAULT_EMBED_ENDPOINT"); v != "" {
		cfg.Embeddings.Endpoint = v
	}
	if v := os.Getenv("SAMPLEVAULT_TRANSLATE_PROVIDER"); v != "" {
		cfg.Translation.Provider = v
	}
	if v := os.Getenv("SAMPLEVAULT_TRANSLATE_BASE_URL"); v != "" {
		cfg.Translation.BaseURL = v
	}
	if v := os.Getenv("SAMPLEVAULT_TARGET_LANG"); v != "" {
		cfg.Translation.TargetLang = v
	}
	if v := os.Getenv("SAMPLEVAULT_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Jobs.BatchSize = n
		}
	}
	if v := os.Getenv("SAMPLEVAULT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Index.ChunkSize < 1 {
		return errors.ConfigError(
			fmt.Sprintf("index.chunk_size must be >= 1, got %d", c.Index.ChunkSize), nil)
	}
	if c.Index.BaseName == "" {
		return errors.ConfigError("index.base_name must not be empty", nil)
	}
	if c.Embeddings.Dimensions < 1 {
		return errors.ConfigError(
			fmt.Sprintf("embeddings.dimensions must be >= 1, got %d", c.Embeddings.Dimensions), nil)
	}
	if c.Embeddings.BatchSize < 1 {
		return errors.ConfigError(
			fmt.Sprintf("embeddings.batch_size must be >= 1, got %d", c.Embeddings.BatchSize), nil)
	}
	switch c.Embeddings.Provider {
	case "http", "static":
	default:
		return errors.ConfigError(
			fmt.Sprintf("embeddings.provider must be http or static, got %q", c.Embeddings.Provider), nil)
	}
	switch c.Translation.Provider {
	case "openai", "noop":
	default:
		return errors.ConfigError(
			fmt.Sprintf("translation.provider must be openai or noop, got %q", c.Translation.Provider), nil)
	}
	if c.Jobs.BatchSize < 1 {
		return errors.ConfigError(
			fmt.Sprintf("jobs.batch_size must be >= 1, got %d", c.Jobs.BatchSize), nil)
	}
	if c.Jobs.Slots < 1 {
		return errors.ConfigError(
			fmt.Sprintf("jobs.slots must be >= 1, got %d", c.Jobs.Slots), nil)
	}
	if c.Jobs.TagThreshold < 0 || c.Jobs.TagThreshold > 1 {
		return errors.ConfigError(
			fmt.Sprintf("jobs.tag_threshold must be within [0,1], got %g", c.Jobs.TagThreshold), nil)
	}
	return nil
}

// APIKey resolves the translation API key from the environment.
func (c *TranslationConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// Save writes the configuration to the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.InternalError("marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeFilePermission, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeFilePermission, err)
	}
	return nil
}
