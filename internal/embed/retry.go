package embed

import (
	"context"

	"samplevault/internal/errors"
)

// RetryingEmbedder retries transient backend failures with exponential
// backoff. Once the retry budget is spent the error escalates as
// provider exhaustion, which halts the owning job.
type RetryingEmbedder struct {
	inner Embedder
	cfg   errors.RetryConfig
}

var _ Embedder = (*RetryingEmbedder)(nil)

// NewRetryingEmbedder wraps inner with the default retry policy.
func NewRetryingEmbedder(inner Embedder) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, cfg: errors.DefaultRetryConfig()}
}

// Embed retries a single-item embedding.
func (r *RetryingEmbedder) Embed(ctx context.Context, input string) ([]float32, error) {
	var vec []float32
	err := errors.Retry(ctx, r.cfg, func() error {
		var err error
		vec, err = r.inner.Embed(ctx, input)
		return err
	})
	return vec, err
}

// EmbedBatch retries the whole batch; backends are expected to be
// idempotent for identical inputs.
func (r *RetryingEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	var vecs [][]float32
	err := errors.Retry(ctx, r.cfg, func() error {
		var err error
		vecs, err = r.inner.EmbedBatch(ctx, inputs)
		return err
	})
	return vecs, err
}

// Dimensions returns the wrapped embedder's dimensionality.
func (r *RetryingEmbedder) Dimensions() int { return r.inner.Dimensions() }

// ModelName returns the wrapped embedder's model identifier.
func (r *RetryingEmbedder) ModelName() string { return r.inner.ModelName() }

// Close closes the wrapped embedder.
func (r *RetryingEmbedder) Close() error { return r.inner.Close() }
