// Package embed provides the embedding capability: audio items in,
// fixed-length vectors out. Backends are chosen once at configuration
// time and injected into the indexing worker.
package embed

import (
	"context"
	"math"
)

const (
	// DefaultBatchSize is the default number of items per request.
	DefaultBatchSize = 32

	// DefaultDimensions matches the CLAP audio encoder output.
	DefaultDimensions = 512

	// StaticDimensions is the dimension of the offline hash embedder.
	StaticDimensions = 128
)

// Embedder turns audio item paths into embedding vectors.
type Embedder interface {
	// Embed embeds a single item.
	Embed(ctx context.Context, input string) ([]float32, error)

	// EmbedBatch embeds multiple items in one call. The result has one
	// vector per input, in input order.
	EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error)

	// Dimensions returns the vector length this embedder produces.
	Dimensions() int

	// ModelName identifies the backing model and its version.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector scales a vector to unit length in place. Similarity
// scores stay comparable across batches only when every stored vector
// is unit length. A zero vector is returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / magnitude)
	}
	return v
}
