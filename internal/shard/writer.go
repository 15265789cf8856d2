package shard

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"samplevault/internal/errors"
)

type pending struct {
	ordinal int64
	key     string
	vec     []float32
}

// Info describes one flushed shard file.
type Info struct {
	Path       string // absolute path
	Name       string // manifest entry
	Count      int64
	MinOrdinal int64
	MaxOrdinal int64
}

// Writer appends vectors to the index. Entries buffer in memory and
// flush as a new shard once the chunk size is reached; nothing already
// on disk is ever rewritten. A file lock enforces one writer per index
// directory.
type Writer struct {
	dir       string
	baseName  string
	dims      int
	chunkSize int
	lock      *flock.Flock
	manifest  *Manifest
	buf       []pending
}

// NewWriter opens the index for appending. It fails fast when another
// writer holds the lock rather than corrupting the manifest chain.
func NewWriter(dir, baseName string, dims, chunkSize int) (*Writer, error) {
	if dims <= 0 || chunkSize <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParams,
			"dims and chunk size must be positive", nil)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.IOError(fmt.Sprintf("create index dir %s", dir), err)
	}

	lock := flock.New(filepath.Join(dir, baseName+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.IOError("acquire index lock", err)
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeIndexLocked,
			fmt.Sprintf("index %s is locked by another writer", dir), nil).
			WithSuggestion("wait for the running INDEX job to finish")
	}

	m, err := LoadManifest(dir, baseName)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if m.Dimensions == 0 {
		m.Dimensions = dims
	} else if m.Dimensions != dims {
		_ = lock.Unlock()
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("index holds %d-dim vectors, writer configured for %d", m.Dimensions, dims), nil)
	}

	return &Writer{
		dir:       dir,
		baseName:  baseName,
		dims:      dims,
		chunkSize: chunkSize,
		lock:      lock,
		manifest:  m,
	}, nil
}

// Add buffers one entry. When the buffer reaches the chunk size it is
// flushed and the new shard's Info returned; otherwise Info is nil.
func (w *Writer) Add(ordinal int64, key string, vec []float32) (*Info, error) {
	if len(vec) != w.dims {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("vector for %q has %d dims, index needs %d", key, len(vec), w.dims), nil)
	}
	w.buf = append(w.buf, pending{ordinal: ordinal, key: key, vec: vec})
	if len(w.buf) >= w.chunkSize {
		return w.Flush()
	}
	return nil, nil
}

// Pending returns the number of buffered, not yet durable entries.
func (w *Writer) Pending() int {
	return len(w.buf)
}

// Flush writes buffered entries as one new shard, then atomically
// rewrites the manifest to reference it. The shard hits disk before the
// manifest does; a crash in between leaves an orphan the manifest never
// mentions. Returns nil when the buffer is empty.
func (w *Writer) Flush() (*Info, error) {
	if len(w.buf) == 0 {
		return nil, nil
	}

	name := fmt.Sprintf("%s_%s.shard", w.baseName, uuid.NewString())
	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errors.IOError(fmt.Sprintf("create shard %s", path), err)
	}

	bw := bufio.NewWriterSize(f, 64*1024)
	header := shardHeader{
		Version: shardFormatVersion,
		Dims:    uint16(w.dims),
		Count:   uint32(len(w.buf)),
	}
	if err := writeHeader(bw, header); err != nil {
		_ = f.Close()
		return nil, errors.IOError("write shard header", err)
	}

	info := &Info{Path: path, Name: name, Count: int64(len(w.buf))}
	for i, e := range w.buf {
		if err := writeEntry(bw, e.key, e.vec); err != nil {
			_ = f.Close()
			return nil, errors.IOError("write shard entry", err)
		}
		if i == 0 || e.ordinal < info.MinOrdinal {
			info.MinOrdinal = e.ordinal
		}
		if i == 0 || e.ordinal > info.MaxOrdinal {
			info.MaxOrdinal = e.ordinal
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return nil, errors.IOError("flush shard", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return nil, errors.IOError("sync shard", err)
	}
	if err := f.Close(); err != nil {
		return nil, errors.IOError("close shard", err)
	}

	w.manifest.Shards = append(w.manifest.Shards, name)
	w.manifest.TotalCount += info.Count
	if err := saveManifest(w.dir, w.baseName, w.manifest); err != nil {
		// Roll the in-memory view back so a retried Flush does not
		// double-count; the orphaned shard file stays invisible.
		w.manifest.Shards = w.manifest.Shards[:len(w.manifest.Shards)-1]
		w.manifest.TotalCount -= info.Count
		return nil, err
	}

	w.buf = w.buf[:0]
	return info, nil
}

// Manifest returns the writer's current view of the manifest.
func (w *Writer) Manifest() *Manifest {
	return w.manifest
}

// Close flushes any remaining entries and releases the index lock.
func (w *Writer) Close() error {
	_, flushErr := w.Flush()
	if err := w.lock.Unlock(); err != nil && flushErr == nil {
		flushErr = errors.IOError("release index lock", err)
	}
	return flushErr
}
