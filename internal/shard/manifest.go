// Package shard implements the chunked on-disk vector index: bounded
// binary shard files plus an append-only JSON manifest. A shard is
// written completely before the manifest is atomically rewritten to
// reference it, so readers never observe a partial shard and an
// interrupted writer leaves at worst an orphaned file the manifest
// ignores.
package shard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"samplevault/internal/errors"
)

// ManifestFormatVersion is bumped on incompatible manifest changes.
const ManifestFormatVersion = 1

// Manifest lists the complete shards of one logical index, in append
// order. TotalCount is the sum of per-shard entry counts.
type Manifest struct {
	FormatVersion int      `json:"format_version"`
	Dimensions    int      `json:"dimensions"`
	Shards        []string `json:"shard_files"`
	TotalCount    int64    `json:"total_count"`
}

// ManifestPath returns the manifest location for an index base name.
func ManifestPath(dir, baseName string) string {
	return filepath.Join(dir, baseName+"_manifest.json")
}

// LoadManifest reads the manifest for an index. A missing manifest is
// an empty index, not an error; a malformed one is fatal since search
// and indexing cannot tell which shards are trustworthy.
func LoadManifest(dir, baseName string) (*Manifest, error) {
	path := ManifestPath(dir, baseName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{FormatVersion: ManifestFormatVersion}, nil
	}
	if err != nil {
		return nil, errors.IOError(fmt.Sprintf("read manifest %s", path), err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptManifest,
			fmt.Sprintf("manifest %s is not valid JSON", path), err).
			WithSuggestion("rebuild the index with a fresh INDEX job")
	}
	if m.FormatVersion != ManifestFormatVersion {
		return nil, errors.New(errors.ErrCodeCorruptManifest,
			fmt.Sprintf("manifest %s has unsupported format version %d", path, m.FormatVersion), nil)
	}
	return &m, nil
}

// saveManifest atomically replaces the manifest. Concurrent readers see
// either the old or the new file, never a torn write.
func saveManifest(dir, baseName string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.InternalError("encode manifest", err)
	}
	path := ManifestPath(dir, baseName)
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return errors.IOError(fmt.Sprintf("write manifest %s", path), err)
	}
	return nil
}
