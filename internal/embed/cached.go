package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of cached vectors.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with an LRU cache keyed by input and
// model, so re-running an INDEX job over unchanged items skips the
// inference round-trip.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with a cache of the given size.
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) cacheKey(input string) string {
	hash := sha256.Sum256([]byte(input + "\x00" + c.inner.ModelName()))
	return hex.EncodeToString(hash[:])
}

// Embed returns a cached vector when available.
func (c *CachedEmbedder) Embed(ctx context.Context, input string) ([]float32, error) {
	key := c.cacheKey(input)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, input)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch serves cached inputs from memory and forwards only the
// misses, preserving input order in the result.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(inputs))
	missIdx := make([]int, 0, len(inputs))
	missInputs := make([]string, 0, len(inputs))
	for i, input := range inputs {
		if vec, ok := c.cache.Get(c.cacheKey(input)); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missInputs = append(missInputs, input)
	}
	if len(missInputs) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missInputs)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Add(c.cacheKey(inputs[i]), vecs[j])
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimensionality.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the wrapped embedder's model identifier.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Close closes the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
