// Package search streams similarity queries over the chunked index.
// Shards are visited lazily in manifest order with a bounded per-shard
// top-K, so peak memory never depends on the full index size.
package search

import (
	"container/heap"
	"io"
	"math"
	"path/filepath"
	"sort"

	"samplevault/internal/selection"
	"samplevault/internal/shard"
)

// Result is one ranked hit.
type Result struct {
	Key   string
	Score float32
}

// Cosine returns the cosine similarity of two vectors, or 0 when either
// has zero norm.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// scored pairs a hit with its first-seen position for deterministic
// tie-breaking across shards.
type scored struct {
	key   string
	score float32
	seq   int
}

// scoreHeap is a min-heap by score, evicting the weakest hit first.
type scoreHeap []scored

func (h scoreHeap) Len() int            { return len(h) }
func (h scoreHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h scoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x any)         { *h = append(*h, x.(scored)) }
func (h *scoreHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Options bounds a search.
type Options struct {
	TopPerShard int
	MaxResults  int
}

// Search ranks index entries against a query vector, restricted to the
// matcher's scope. Duplicate keys across shards collapse to their
// maximum score, which keeps results correct when incremental
// re-indexing has left stale entries behind. A zero-norm query returns
// no results.
func Search(dir string, m *shard.Manifest, query []float32, matcher *selection.Matcher, opts Options) ([]Result, error) {
	if opts.TopPerShard <= 0 || opts.MaxResults <= 0 {
		return nil, nil
	}
	var qnorm float64
	for _, v := range query {
		qnorm += float64(v) * float64(v)
	}
	if qnorm == 0 {
		return nil, nil
	}

	best := make(map[string]scored)
	seq := 0
	for _, name := range m.Shards {
		r, err := shard.OpenShard(filepath.Join(dir, name), m.Dimensions)
		if err != nil {
			return nil, err
		}

		local := make(scoreHeap, 0, opts.TopPerShard)
		for {
			key, vec, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = r.Close()
				return nil, err
			}
			if matcher != nil && !matcher.Matches(key) {
				continue
			}
			score := Cosine(query, vec)
			if len(local) < opts.TopPerShard {
				heap.Push(&local, scored{key: key, score: score})
			} else if score > local[0].score {
				local[0] = scored{key: key, score: score}
				heap.Fix(&local, 0)
			}
		}
		if err := r.Close(); err != nil {
			return nil, err
		}

		// Merge this shard's partial result, keeping the max score per
		// key and the first shard that produced it.
		sort.Slice(local, func(i, j int) bool { return local[i].score > local[j].score })
		for _, hit := range local {
			prev, seen := best[hit.key]
			if !seen {
				hit.seq = seq
				seq++
				best[hit.key] = hit
				continue
			}
			if hit.score > prev.score {
				prev.score = hit.score
				best[hit.key] = prev
			}
		}
	}

	merged := make([]scored, 0, len(best))
	for _, hit := range best {
		merged = append(merged, hit)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].seq < merged[j].seq
	})
	if len(merged) > opts.MaxResults {
		merged = merged[:opts.MaxResults]
	}

	out := make([]Result, len(merged))
	for i, hit := range merged {
		out[i] = Result{Key: hit.key, Score: hit.score}
	}
	return out, nil
}

// CollectVectors streams the index once and returns the vectors for the
// requested keys. With duplicate entries the latest shard wins, since
// manifest order is append order.
func CollectVectors(dir string, m *shard.Manifest, keys []string) (map[string][]float32, error) {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	out := make(map[string][]float32, len(keys))
	for _, name := range m.Shards {
		r, err := shard.OpenShard(filepath.Join(dir, name), m.Dimensions)
		if err != nil {
			return nil, err
		}
		for {
			key, vec, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = r.Close()
				return nil, err
			}
			if _, ok := want[key]; ok {
				out[key] = vec
			}
		}
		if err := r.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
