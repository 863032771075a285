package index

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprint/soundprint/internal/vectorizer"
)

func vec(fill float64, spike int, spikeVal float64) []float64 {
	v := make([]float64, vectorizer.Dimensions)
	for i := range v {
		v[i] = fill
	}
	if spike >= 0 {
		v[spike] = spikeVal
	}
	return v
}

func TestAddRejectsWrongDimensions(t *testing.T) {
	idx := New(100)
	err := idx.Add(Entry{ID: "a", Vector: []float64{1, 2, 3}})
	require.Error(t, err)
}

func TestSearchEmptyIndexReturnsNil(t *testing.T) {
	idx := New(100)
	results, err := idx.Search(vec(0, -1, 0), 10, 0.5)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestAddThenSearchFindsSelf(t *testing.T) {
	idx := New(100)
	require.NoError(t, idx.Add(Entry{ID: "a", Vector: vec(0.1, 0, 5.0), Tempo: 120, Key: "C major"}))
	require.NoError(t, idx.Add(Entry{ID: "b", Vector: vec(0.1, 0, -5.0), Tempo: 80, Key: "A minor"}))

	results, err := idx.Search(vec(0.1, 0, 5.0), 5, 0.0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, 1, results[0].Rank)
}

func TestSearchThresholdFiltersWeakMatches(t *testing.T) {
	idx := New(100)
	require.NoError(t, idx.Add(Entry{ID: "a", Vector: vec(0.1, 0, 5.0)}))
	require.NoError(t, idx.Add(Entry{ID: "b", Vector: vec(0.1, 0, -5.0)}))

	results, err := idx.Search(vec(0.1, 0, 5.0), 5, 0.99)
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.99)
	}
}

func TestRebuildRefitsStandardizer(t *testing.T) {
	idx := New(100)
	entries := []Entry{
		{ID: "a", Vector: vec(0.1, 0, 5.0)},
		{ID: "b", Vector: vec(0.1, 0, -5.0)},
		{ID: "c", Vector: vec(0.2, 0, 1.0)},
	}
	require.NoError(t, idx.Rebuild(context.Background(), entries))

	stats := idx.Stats()
	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, vectorizer.Dimensions, stats.Dimensions)
	assert.Equal(t, "flat-inner-product", stats.IndexType)
}

func TestRebuildEveryNTriggersFullRefit(t *testing.T) {
	idx := New(2)
	require.NoError(t, idx.Add(Entry{ID: "a", Vector: vec(0.1, 0, 1.0)}))
	require.NoError(t, idx.Add(Entry{ID: "b", Vector: vec(0.1, 0, 2.0)}))

	stats := idx.Stats()
	assert.Equal(t, 2, stats.TotalItems)
}

func TestConcurrentAddsDoNotLoseEntries(t *testing.T) {
	idx := New(1000) // high enough that no worker triggers a full rebuild mid-run
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = idx.Add(Entry{ID: fmt.Sprintf("t%d", i), Vector: vec(0.1, 0, float64(i))})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, idx.Stats().TotalItems)
}

func TestConstantColumnDoesNotDivideByZero(t *testing.T) {
	idx := New(100)
	a := make([]float64, vectorizer.Dimensions)
	b := make([]float64, vectorizer.Dimensions)
	require.NoError(t, idx.Rebuild(context.Background(), []Entry{
		{ID: "a", Vector: a},
		{ID: "b", Vector: b},
	}))

	results, err := idx.Search(make([]float64, vectorizer.Dimensions), 5, 0.0)
	require.NoError(t, err)
	for _, r := range results {
		assert.False(t, r.Similarity != r.Similarity, "similarity is NaN")
	}
}
