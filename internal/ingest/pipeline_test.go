package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHashStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp3")
	require.NoError(t, os.WriteFile(path, []byte("some bytes of audio-ish content"), 0644))

	h1, err := fileHash(path)
	require.NoError(t, err)
	h2, err := fileHash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEmpty(t, h1)
}

func TestFileHashDiffersOnContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "b.mp3")
	require.NoError(t, os.WriteFile(a, []byte("content one"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("content two, different"), 0644))

	ha, err := fileHash(a)
	require.NoError(t, err)
	hb, err := fileHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestFileHashMissingFileErrors(t *testing.T) {
	_, err := fileHash("/definitely/not/a/real/path.mp3")
	assert.Error(t, err)
}

func TestFileHashSameContentDifferentPathMatches(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "a.mp3")
	moved := filepath.Join(dir, "renamed.mp3")
	require.NoError(t, os.WriteFile(original, []byte("identical audio bytes"), 0644))
	require.NoError(t, os.WriteFile(moved, []byte("identical audio bytes"), 0644))

	h1, err := fileHash(original)
	require.NoError(t, err)
	h2, err := fileHash(moved)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
