package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprint/soundprint/internal/fingerprint"
)

func TestMemoryUpsertAndGetByPath(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	track := Track{
		ID:          "1",
		FilePath:    "/music/a.mp3",
		FileHash:    "abc",
		Title:       "A",
		Fingerprint: fingerprint.Zero(),
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.Upsert(ctx, track))

	got, ok, err := s.GetByPath(ctx, "/music/a.mp3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)
}

func TestMemoryGetByHash(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Upsert(ctx, Track{FilePath: "/x.mp3", FileHash: "h1"}))

	got, ok, err := s.GetByHash(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/x.mp3", got.FilePath)
}

func TestMemoryGetMissingIsNotError(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, ok, err := s.GetByPath(ctx, "/nope.mp3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryAllAndCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Upsert(ctx, Track{FilePath: "/a.mp3"}))
	require.NoError(t, s.Upsert(ctx, Track{FilePath: "/b.mp3"}))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryUpsertOverwritesByPath(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Upsert(ctx, Track{FilePath: "/a.mp3", Title: "old"}))
	require.NoError(t, s.Upsert(ctx, Track{FilePath: "/a.mp3", Title: "new"}))

	got, ok, err := s.GetByPath(ctx, "/a.mp3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Title)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
