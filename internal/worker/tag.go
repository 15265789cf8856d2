package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"samplevault/internal/embed"
	"samplevault/internal/runner"
	"samplevault/internal/search"
	"samplevault/internal/selection"
	"samplevault/internal/shard"
	"samplevault/internal/store"
	"samplevault/internal/translate"
)

// tagTranslationCacheSize bounds the per-worker label translation
// cache. Label sets are small; this only matters across resumes.
const tagTranslationCacheSize = 256

// TagWorker classifies items by cosine similarity against a fixed set
// of label prototypes. Labels are embedded once per run; item vectors
// come from the shards the index job wrote. An item whose best score
// stays below the threshold is processed with zero tags, not failed.
type TagWorker struct {
	store      *store.Store
	embedder   embed.Embedder
	translator translate.Translator // nil keeps labels untranslated
	targetLang string

	labels    []string
	threshold float64
	topK      int

	indexDir string
	manifest *shard.Manifest
	version  string

	protos [][]float32 // lazily embedded label vectors
	names  []string    // display name per label, translated when possible
	cache  *lru.Cache[string, string]
	closed bool
}

var _ runner.Worker = (*TagWorker)(nil)

// NewTagWorker loads the index manifest and derives the tag version
// from everything that influences the result: model, labels, threshold
// and cap. Changing any of them makes every item pending again. The
// worker owns e and tr and closes both in Close.
func NewTagWorker(st *store.Store, e embed.Embedder, tr translate.Translator, targetLang string,
	labels []string, threshold float64, topK int, indexDir, baseName string) (*TagWorker, error) {
	if len(labels) == 0 {
		return nil, errInvalidParams("tag job needs at least one label")
	}
	if topK <= 0 {
		topK = 3
	}
	m, err := shard.LoadManifest(indexDir, baseName)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, string](tagTranslationCacheSize)
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%.4f\x00%d", e.ModelName(), strings.Join(labels, "\x1f"), threshold, topK)
	version := "tag-" + hex.EncodeToString(h.Sum(nil))[:12]

	return &TagWorker{
		store:      st,
		embedder:   e,
		translator: tr,
		targetLang: targetLang,
		labels:     labels,
		threshold:  threshold,
		topK:       topK,
		indexDir:   indexDir,
		manifest:   m,
		version:    version,
		cache:      cache,
	}, nil
}

func (w *TagWorker) Gate() (selection.VersionField, string) {
	return selection.FieldTag, w.version
}

func (w *TagWorker) Process(ctx context.Context, items []store.FileRow) ([]store.Outcome, error) {
	if err := w.ensurePrototypes(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key
	}
	vecs, err := search.CollectVectors(w.indexDir, w.manifest, keys)
	if err != nil {
		return nil, err
	}

	out := make([]store.Outcome, len(items))
	for i, item := range items {
		vec, ok := vecs[item.Key]
		if !ok {
			out[i] = store.Outcome{
				FileID: item.ID,
				Failed: true,
				Error:  fmt.Sprintf("no vector for %s, run an index job first", item.Key),
			}
			continue
		}
		tags := w.classify(vec)
		out[i] = store.Outcome{FileID: item.ID, Tags: tags}
	}
	return out, nil
}

func (w *TagWorker) Finish(ctx context.Context) error { return nil }

// Close releases the embedder and the translator the worker owns.
func (w *TagWorker) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.embedder.Close()
	if w.translator != nil {
		if cerr := w.translator.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// classify scores the vector against every prototype and keeps the
// top-K labels at or above the threshold. The returned slice is never
// nil: zero matches still clear stale tags.
func (w *TagWorker) classify(vec []float32) []string {
	type match struct {
		idx   int
		score float32
	}
	var matches []match
	for i, proto := range w.protos {
		score := search.Cosine(vec, proto)
		if float64(score) >= w.threshold {
			matches = append(matches, match{idx: i, score: score})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})
	if len(matches) > w.topK {
		matches = matches[:w.topK]
	}
	tags := make([]string, len(matches))
	for i, m := range matches {
		tags[i] = w.names[m.idx]
	}
	return tags
}

// ensurePrototypes embeds the labels and resolves their display names
// once per run. Label translation failures fall back to the raw label;
// tagging never fails because a label could not be localized.
func (w *TagWorker) ensurePrototypes(ctx context.Context) error {
	if w.protos != nil {
		return nil
	}
	protos, err := w.embedder.EmbedBatch(ctx, w.labels)
	if err != nil {
		return err
	}
	if len(protos) != len(w.labels) {
		return errInvalidParams(fmt.Sprintf("embedder returned %d prototypes for %d labels", len(protos), len(w.labels)))
	}
	w.protos = protos
	w.names = w.displayNames(ctx)
	return nil
}

func (w *TagWorker) displayNames(ctx context.Context) []string {
	names := make([]string, len(w.labels))
	copy(names, w.labels)
	if w.translator == nil {
		return names
	}

	var misses []string
	var missIdx []int
	for i, label := range w.labels {
		if cached, ok := w.cache.Get(label); ok {
			names[i] = cached
			continue
		}
		misses = append(misses, label)
		missIdx = append(missIdx, i)
	}
	if len(misses) == 0 {
		return names
	}

	results, err := w.translator.TranslateBatch(ctx, misses, w.targetLang)
	if err != nil || len(results) != len(misses) {
		slog.Warn("label_translation_skipped",
			slog.Int("labels", len(misses)),
			slog.Any("error", err))
		return names
	}
	for j, res := range results {
		if res.Err != nil || res.Translated == "" {
			continue
		}
		names[missIdx[j]] = res.Translated
		w.cache.Add(misses[j], res.Translated)
	}
	return names
}
