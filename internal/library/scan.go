// Package library registers audio files with the store. Scanning
// assigns ordinals: rows insert in walk order and keep their id for
// the lifetime of the library.
package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"samplevault/internal/errors"
	"samplevault/internal/store"
)

// scanParallelism bounds concurrent root walks. Sample libraries often
// spread across several drives; walking them in parallel helps, more
// goroutines than that mostly thrash the disks.
const scanParallelism = 4

// ScanResult summarizes one scan run.
type ScanResult struct {
	Walked   int // audio files seen
	Inserted int // new rows registered
}

// Scan walks the given roots, collects files matching the extensions
// and registers them. Already-known paths are left untouched. The
// collected paths are sorted before insertion so ordinal assignment is
// stable regardless of walk interleaving.
func Scan(ctx context.Context, st *store.Store, roots []string, extensions []string) (*ScanResult, error) {
	if len(roots) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no library roots to scan", nil)
	}
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}

	var mu sync.Mutex
	var paths []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanParallelism)
	for _, root := range roots {
		g.Go(func() error {
			if _, err := os.Stat(root); err != nil {
				return errors.IOError("scan "+root, err)
			}
			var local []string
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if d.IsDir() {
					return nil
				}
				if extSet[strings.ToLower(filepath.Ext(path))] {
					local = append(local, path)
				}
				return nil
			})
			if err != nil {
				return errors.IOError("scan "+root, err)
			}
			mu.Lock()
			paths = append(paths, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(paths)
	inserted, err := st.UpsertFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Walked: len(paths), Inserted: inserted}, nil
}
