package worker

import (
	"context"
	"fmt"

	"samplevault/internal/errors"
	"samplevault/internal/runner"
	"samplevault/internal/selection"
	"samplevault/internal/store"
	"samplevault/internal/translate"
)

// TranslateWorker sends item names to the translation backend and
// records the sanitized result in translated_name. A translation the
// sanitizer empties out falls back to the original name; an item the
// backend failed becomes a failed outcome and the job moves on.
type TranslateWorker struct {
	translator translate.Translator
	targetLang string
	version    string
	closed     bool
}

var _ runner.Worker = (*TranslateWorker)(nil)

// NewTranslateWorker builds a translate worker. The worker owns tr and
// closes it in Close.
func NewTranslateWorker(tr translate.Translator, targetLang string) *TranslateWorker {
	return &TranslateWorker{
		translator: tr,
		targetLang: targetLang,
		version:    NameVersion(tr, targetLang),
	}
}

// NameVersion is the version stamp a translate job writes, shared with
// the apply worker so renames track the translation generation.
func NameVersion(tr translate.Translator, targetLang string) string {
	return tr.ModelVersion() + ":" + targetLang
}

func (w *TranslateWorker) Gate() (selection.VersionField, string) {
	return selection.FieldName, w.version
}

func (w *TranslateWorker) Process(ctx context.Context, items []store.FileRow) ([]store.Outcome, error) {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	results, err := w.translator.TranslateBatch(ctx, names, w.targetLang)
	if err != nil {
		return nil, err
	}
	if len(results) != len(items) {
		return nil, errors.InternalError(
			fmt.Sprintf("translator returned %d results for %d items", len(results), len(items)), nil)
	}

	out := make([]store.Outcome, len(items))
	for i, item := range items {
		if results[i].Err != nil {
			out[i] = store.Outcome{FileID: item.ID, Failed: true, Error: results[i].Err.Error()}
			continue
		}
		translated := SanitizeName(results[i].Translated)
		if translated == "" {
			// Unusable model output. The original name is already a
			// valid stem, keep it so the item stays renameable.
			translated = item.Name
		}
		out[i] = store.Outcome{FileID: item.ID, TranslatedName: &translated}
	}
	return out, nil
}

func (w *TranslateWorker) Finish(ctx context.Context) error { return nil }

// Close releases the translator the worker owns.
func (w *TranslateWorker) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.translator.Close()
}
