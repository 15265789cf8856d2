package shard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	vaulterr "samplevault/internal/errors"
)

var errBadMagic = errors.New("bad shard magic")

// Reader streams one shard file's entries without loading it whole.
type Reader struct {
	f     *os.File
	br    *bufio.Reader
	path  string
	dims  int
	count int
	read  int
}

// OpenShard opens a shard file and validates its header. dims of zero
// accepts whatever the shard declares; a non-zero dims must match.
func OpenShard(path string, dims int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, vaulterr.IOError(fmt.Sprintf("open shard %s", path), err)
	}
	br := bufio.NewReaderSize(f, 64*1024)
	h, err := readHeader(br)
	if err != nil {
		_ = f.Close()
		return nil, vaulterr.New(vaulterr.ErrCodeShardCorrupt,
			fmt.Sprintf("shard %s has an invalid header", path), err)
	}
	if h.Version != shardFormatVersion {
		_ = f.Close()
		return nil, vaulterr.New(vaulterr.ErrCodeShardCorrupt,
			fmt.Sprintf("shard %s has unsupported version %d", path, h.Version), nil)
	}
	if dims != 0 && int(h.Dims) != dims {
		_ = f.Close()
		return nil, vaulterr.New(vaulterr.ErrCodeDimensionMismatch,
			fmt.Sprintf("shard %s holds %d-dim vectors, expected %d", path, h.Dims, dims), nil)
	}
	return &Reader{f: f, br: br, path: path, dims: int(h.Dims), count: int(h.Count)}, nil
}

// Dims returns the vector dimensionality declared by the shard.
func (r *Reader) Dims() int { return r.dims }

// Count returns the entry count declared by the shard header.
func (r *Reader) Count() int { return r.count }

// Next returns the next (key, vector) pair. io.EOF signals a clean end;
// a shard that ends early reports corruption instead.
func (r *Reader) Next() (string, []float32, error) {
	if r.read >= r.count {
		return "", nil, io.EOF
	}
	key, vec, err := readEntry(r.br, r.dims)
	if err != nil {
		return "", nil, vaulterr.New(vaulterr.ErrCodeShardCorrupt,
			fmt.Sprintf("shard %s truncated after %d of %d entries", r.path, r.read, r.count), err)
	}
	r.read++
	return key, vec, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
