package translate

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of cached translations.
const DefaultCacheSize = 512

// CachedTranslator wraps a Translator with an LRU cache keyed by text
// and target language. Sample libraries repeat names heavily, so most
// batches resolve largely from cache.
type CachedTranslator struct {
	inner Translator
	cache *lru.Cache[string, string]
}

var _ Translator = (*CachedTranslator)(nil)

// NewCachedTranslator wraps inner with a cache of the given size.
func NewCachedTranslator(inner Translator, cacheSize int) *CachedTranslator {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, string](cacheSize)
	return &CachedTranslator{inner: inner, cache: cache}
}

func cacheKey(text, targetLang string) string {
	return targetLang + "\x00" + text
}

// TranslateBatch serves cached texts and forwards only the misses.
// Failed items are not cached, so a later batch retries them.
func (c *CachedTranslator) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]Result, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if translated, ok := c.cache.Get(cacheKey(text, targetLang)); ok {
			out[i] = Result{Original: text, Translated: translated}
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	results, err := c.inner.TranslateBatch(ctx, missTexts, targetLang)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = results[j]
		if results[j].Err == nil {
			c.cache.Add(cacheKey(texts[i], targetLang), results[j].Translated)
		}
	}
	return out, nil
}

// ModelVersion returns the wrapped translator's model identifier.
func (c *CachedTranslator) ModelVersion() string { return c.inner.ModelVersion() }

// Close closes the wrapped translator.
func (c *CachedTranslator) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
