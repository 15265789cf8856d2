package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
)

// tokenRegex matches alphanumeric runs in an item path.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// StaticEmbedder produces deterministic hash-based vectors with no
// model and no network. Semantic quality is poor but stable, which is
// what tests and offline smoke runs need.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates the offline embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed hashes path tokens into fixed buckets and normalizes.
func (e *StaticEmbedder) Embed(ctx context.Context, input string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errClosed
	}

	vec := make([]float32, StaticDimensions)
	tokens := tokenRegex.FindAllString(strings.ToLower(input), -1)
	if len(tokens) == 0 {
		return vec, nil
	}
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % StaticDimensions)
		// Alternate sign from a hash bit so common tokens do not drive
		// every component positive.
		if sum&0x80000000 != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}
	return normalizeVector(vec), nil
}

// EmbedBatch embeds each input independently.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		vec, err := e.Embed(ctx, input)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the static vector length.
func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

// ModelName identifies the hash scheme as a pseudo model.
func (e *StaticEmbedder) ModelName() string { return "static-fnv-v1" }

// Close marks the embedder closed.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}
