package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplevault/internal/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20000, cfg.Index.ChunkSize)
	assert.Equal(t, 200, cfg.Jobs.BatchSize)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Index.BaseName, cfg.Index.BaseName)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
version: 1
index:
  dir: /tmp/custom-index
  base_name: clap
  chunk_size: 5000
jobs:
  batch_size: 50
  slots: 1
  tag_threshold: 0.4
  tag_top_k: 5
  top_per_shard: 20
  max_results: 30
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-index", cfg.Index.Dir)
	assert.Equal(t, "clap", cfg.Index.BaseName)
	assert.Equal(t, 5000, cfg.Index.ChunkSize)
	assert.Equal(t, 50, cfg.Jobs.BatchSize)
	assert.InDelta(t, 0.4, cfg.Jobs.TagThreshold, 1e-9)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, Default().Embeddings.Model, cfg.Embeddings.Model)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	t.Setenv("SAMPLEVAULT_BATCH_SIZE", "17")
	t.Setenv("SAMPLEVAULT_EMBED_PROVIDER", "static")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 17, cfg.Jobs.BatchSize)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Index.ChunkSize = 0 }},
		{"empty base name", func(c *Config) { c.Index.BaseName = "" }},
		{"bad embed provider", func(c *Config) { c.Embeddings.Provider = "magic" }},
		{"bad translate provider", func(c *Config) { c.Translation.Provider = "magic" }},
		{"zero slots", func(c *Config) { c.Jobs.Slots = 0 }},
		{"threshold out of range", func(c *Config) { c.Jobs.TagThreshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Jobs.BatchSize = 77
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 77, loaded.Jobs.BatchSize)
}

func TestAPIKey_ResolvesFromEnv(t *testing.T) {
	tc := TranslationConfig{APIKeyEnv: "SAMPLEVAULT_TEST_KEY"}
	t.Setenv("SAMPLEVAULT_TEST_KEY", "sk-123")
	assert.Equal(t, "sk-123", tc.APIKey())

	tc.APIKeyEnv = ""
	assert.Empty(t, tc.APIKey())
}
