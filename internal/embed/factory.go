package embed

import (
	"fmt"
	"time"

	"samplevault/internal/config"
	"samplevault/internal/errors"
)

// New builds the configured embedder, wrapped with retry and caching.
func New(cfg config.EmbeddingsConfig) (Embedder, error) {
	var backend Embedder
	switch cfg.Provider {
	case "http":
		httpBackend, err := NewHTTPEmbedder(HTTPConfig{
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		backend = httpBackend
	case "static":
		backend = NewStaticEmbedder()
	default:
		return nil, errors.ConfigError(
			fmt.Sprintf("unknown embeddings provider %q", cfg.Provider), nil)
	}
	return NewCachedEmbedder(NewRetryingEmbedder(backend), cfg.CacheSize), nil
}
