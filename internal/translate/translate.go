// Package translate provides the translation capability used by the
// translate-text worker and the tagging worker's label translation.
package translate

import (
	"context"
	"fmt"
	"time"

	"samplevault/internal/config"
	"samplevault/internal/errors"
)

// Result is one item's translation. Err is set when this item failed
// while the batch as a whole succeeded; the caller records it as a
// per-item failure, not a job failure.
type Result struct {
	Original   string
	Translated string
	Err        error
}

// Translator translates batches of short names.
type Translator interface {
	// TranslateBatch translates texts into the target language. The
	// result has one entry per input, in input order.
	TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]Result, error)

	// ModelVersion identifies the backing model, used in version stamps.
	ModelVersion() string

	// Close releases resources.
	Close() error
}

// New builds the configured translator, wrapped with caching.
func New(cfg config.TranslationConfig) (Translator, error) {
	var backend Translator
	switch cfg.Provider {
	case "openai":
		apiKey := cfg.APIKey()
		if apiKey == "" {
			return nil, errors.ConfigError(
				fmt.Sprintf("translation API key missing, set %s", cfg.APIKeyEnv), nil)
		}
		t, err := NewOpenAITranslator(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  apiKey,
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		backend = t
	case "noop":
		backend = NewNoopTranslator()
	default:
		return nil, errors.ConfigError(
			fmt.Sprintf("unknown translation provider %q", cfg.Provider), nil)
	}
	return NewCachedTranslator(backend, cfg.CacheSize), nil
}

// NoopTranslator returns inputs unchanged. Useful offline and in tests.
type NoopTranslator struct{}

// NewNoopTranslator creates the pass-through translator.
func NewNoopTranslator() *NoopTranslator { return &NoopTranslator{} }

// TranslateBatch echoes every input.
func (n *NoopTranslator) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]Result, error) {
	out := make([]Result, len(texts))
	for i, t := range texts {
		out[i] = Result{Original: t, Translated: t}
	}
	return out, nil
}

// ModelVersion identifies the pass-through backend.
func (n *NoopTranslator) ModelVersion() string { return "noop" }

// Close is a no-op.
func (n *NoopTranslator) Close() error { return nil }
