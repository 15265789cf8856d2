package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplevault/internal/store"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
}

func TestScanRegistersAudioFiles(t *testing.T) {
	s, err := store.Open("")
	require.NoError(t, err)
	defer s.Close()

	dir := t.TempDir()
	writeFiles(t, dir,
		"drums/kick.wav",
		"drums/snare.WAV",
		"pads/warm.flac",
		"docs/readme.txt",
		"covers/art.png",
	)

	res, err := Scan(context.Background(), s, []string{dir}, []string{".wav", ".flac"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Walked)
	assert.Equal(t, 3, res.Inserted)

	// Rescanning finds the same files but inserts nothing.
	res, err = Scan(context.Background(), s, []string{dir}, []string{".wav", ".flac"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Walked)
	assert.Zero(t, res.Inserted)
}

func TestScanMultipleRoots(t *testing.T) {
	s, err := store.Open("")
	require.NoError(t, err)
	defer s.Close()

	a := t.TempDir()
	b := t.TempDir()
	writeFiles(t, a, "one.wav")
	writeFiles(t, b, "two.wav", "sub/three.wav")

	res, err := Scan(context.Background(), s, []string{a, b}, []string{".wav"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Walked)
	assert.Equal(t, 3, res.Inserted)
}

func TestScanMissingRootFails(t *testing.T) {
	s, err := store.Open("")
	require.NoError(t, err)
	defer s.Close()

	_, err = Scan(context.Background(), s, []string{"/no/such/dir"}, []string{".wav"})
	require.Error(t, err)
}

func TestScanNoRoots(t *testing.T) {
	s, err := store.Open("")
	require.NoError(t, err)
	defer s.Close()

	_, err = Scan(context.Background(), s, nil, []string{".wav"})
	require.Error(t, err)
}
