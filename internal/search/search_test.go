package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplevault/internal/selection"
	"samplevault/internal/shard"
)

// unit returns a 2-dim unit vector whose cosine against (1,0) equals c.
func unit(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

var queryX = []float32{1, 0}

func buildIndex(t *testing.T, dir string, shards ...map[string][]float32) *shard.Manifest {
	t.Helper()
	w, err := shard.NewWriter(dir, "embeddings", 2, 1000)
	require.NoError(t, err)
	defer w.Close()

	ordinal := int64(0)
	for _, entries := range shards {
		for key, vec := range entries {
			ordinal++
			_, err := w.Add(ordinal, key, vec)
			require.NoError(t, err)
		}
		_, err := w.Flush()
		require.NoError(t, err)
	}
	m, err := shard.LoadManifest(dir, "embeddings")
	require.NoError(t, err)
	return m
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{2, 0}, []float32{5, 0}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 3}), 1e-6)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-4, 0}), 1e-6)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 0}))
}

func TestDuplicateKeysKeepMaxScore(t *testing.T) {
	dir := t.TempDir()
	m := buildIndex(t, dir,
		map[string][]float32{"a": unit(0.90), "b": unit(0.50)},
		map[string][]float32{"c": unit(0.80), "d": unit(0.10)},
		map[string][]float32{"a": unit(0.95), "e": unit(0.20)},
	)

	results, err := Search(dir, m, queryX, nil, Options{TopPerShard: 1, MaxResults: 10})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Key)
	assert.InDelta(t, 0.95, float64(results[0].Score), 1e-5)
	assert.Equal(t, "c", results[1].Key)
}

func TestRankingAndTruncation(t *testing.T) {
	dir := t.TempDir()
	m := buildIndex(t, dir, map[string][]float32{
		"low": unit(0.1), "mid": unit(0.5), "high": unit(0.9), "top": unit(0.99),
	})

	results, err := Search(dir, m, queryX, nil, Options{TopPerShard: 10, MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "top", results[0].Key)
	assert.Equal(t, "high", results[1].Key)
	assert.Equal(t, "mid", results[2].Key)
}

func TestTopPerShardBoundsEachShard(t *testing.T) {
	dir := t.TempDir()
	m := buildIndex(t, dir,
		map[string][]float32{"a1": unit(0.9), "a2": unit(0.8), "a3": unit(0.7)},
		map[string][]float32{"b1": unit(0.6), "b2": unit(0.5), "b3": unit(0.4)},
	)

	results, err := Search(dir, m, queryX, nil, Options{TopPerShard: 2, MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "a1", results[0].Key)
	assert.Equal(t, "a2", results[1].Key)
	assert.Equal(t, "b1", results[2].Key)
	assert.Equal(t, "b2", results[3].Key)
}

func TestSelectionRestrictsResults(t *testing.T) {
	dir := t.TempDir()
	m := buildIndex(t, dir, map[string][]float32{
		"samples/kicks/kick.wav":  unit(0.9),
		"samples/snares/snr.wav":  unit(0.8),
		"loops/drums/break.wav":   unit(0.7),
		"samples/kicks/kick2.wav": unit(0.3),
	})

	matcher := selection.NewMatcher(selection.ForFolders([]string{"samples/kicks"}))
	results, err := Search(dir, m, queryX, matcher, Options{TopPerShard: 10, MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "samples/kicks/kick.wav", results[0].Key)
	assert.Equal(t, "samples/kicks/kick2.wav", results[1].Key)
}

func TestZeroNormQueryReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	m := buildIndex(t, dir, map[string][]float32{"a": unit(0.9)})

	results, err := Search(dir, m, []float32{0, 0}, nil, Options{TopPerShard: 5, MaxResults: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	m, err := shard.LoadManifest(dir, "embeddings")
	require.NoError(t, err)

	results, err := Search(dir, m, queryX, nil, Options{TopPerShard: 5, MaxResults: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCollectVectorsLatestShardWins(t *testing.T) {
	dir := t.TempDir()
	m := buildIndex(t, dir,
		map[string][]float32{"a": {1, 0}, "b": {0, 1}},
		map[string][]float32{"a": {0.5, 0.5}},
	)

	vecs, err := CollectVectors(dir, m, []string{"a", "b", "missing"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.5, 0.5}, vecs["a"])
	assert.Equal(t, []float32{0, 1}, vecs["b"])
	_, ok := vecs["missing"]
	assert.False(t, ok)
}
