package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanFindsSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".hidden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "c.mp3"), []byte("x"), 0644))

	s := New(nil)
	out := make(chan FileInfo, 10)
	err := s.Scan(context.Background(), []string{dir}, out)
	require.NoError(t, err)

	var found []string
	for fi := range out {
		found = append(found, filepath.Base(fi.Path))
	}
	assert.Equal(t, []string{"a.mp3"}, found)
}

func TestScanSkipsUnreadablePath(t *testing.T) {
	s := New(nil)
	out := make(chan FileInfo, 1)
	err := s.Scan(context.Background(), []string{"/definitely/not/a/real/path"}, out)
	require.NoError(t, err)
	_, ok := <-out
	assert.False(t, ok)
}

func TestScanRejectsConcurrentRun(t *testing.T) {
	s := New(nil)
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()

	out := make(chan FileInfo, 1)
	err := s.Scan(context.Background(), []string{}, out)
	assert.ErrorIs(t, err, errAlreadyRunning)

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}
