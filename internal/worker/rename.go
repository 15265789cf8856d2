package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"samplevault/internal/runner"
	"samplevault/internal/selection"
	"samplevault/internal/store"
)

// Renamer moves a library file. The indirection keeps the apply worker
// testable without touching a real library tree.
type Renamer interface {
	Rename(oldPath, newPath string) error
}

// OSRenamer renames on the local filesystem and refuses to clobber an
// existing target.
type OSRenamer struct{}

func (OSRenamer) Rename(oldPath, newPath string) error {
	if _, err := os.Lstat(newPath); err == nil {
		return fmt.Errorf("target %s already exists", newPath)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.Rename(oldPath, newPath)
}

// ApplyWorker renames files to their recorded translated names. The
// version stamp matches the translate job's, so a new translation
// generation makes renames pending again. All rename failures are
// per-item; the job keeps going.
type ApplyWorker struct {
	renamer Renamer
	version string
}

var _ runner.Worker = (*ApplyWorker)(nil)

// NewApplyWorker builds an apply worker stamping the given name
// version, normally NameVersion of the translator that produced the
// names.
func NewApplyWorker(r Renamer, version string) *ApplyWorker {
	return &ApplyWorker{renamer: r, version: version}
}

func (w *ApplyWorker) Gate() (selection.VersionField, string) {
	return selection.FieldRename, w.version
}

func (w *ApplyWorker) Process(ctx context.Context, items []store.FileRow) ([]store.Outcome, error) {
	out := make([]store.Outcome, len(items))
	for i, item := range items {
		out[i] = w.apply(item)
	}
	return out, nil
}

func (w *ApplyWorker) Finish(ctx context.Context) error { return nil }

func (w *ApplyWorker) Close() error { return nil }

func (w *ApplyWorker) apply(item store.FileRow) store.Outcome {
	stem := SanitizeName(item.TranslatedName)
	if stem == "" {
		return store.Outcome{
			FileID: item.ID,
			Failed: true,
			Error:  "no translated name recorded, run a translate job first",
		}
	}

	ext := filepath.Ext(item.Path)
	newPath := filepath.Join(filepath.Dir(item.Path), stem+ext)
	if newPath == item.Path || strings.TrimSuffix(filepath.Base(item.Path), ext) == stem {
		// Already carries the translated name; just stamp the version.
		return store.Outcome{FileID: item.ID}
	}

	if err := w.renamer.Rename(item.Path, newPath); err != nil {
		return store.Outcome{FileID: item.ID, Failed: true, Error: err.Error()}
	}
	return store.Outcome{FileID: item.ID, NewPath: &newPath}
}
