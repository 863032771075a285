package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/scorer"
	"github.com/soundprint/soundprint/internal/store"
)

func track(id string, tempo float64, key string) store.Track {
	fp := fingerprint.Zero()
	fp.Tempo = tempo
	fp.Key = key
	fp.MFCCMean[0] = tempo / 100
	return store.Track{ID: id, Fingerprint: fp}
}

func TestClusterLibraryTooFewTracksReturnsNil(t *testing.T) {
	e := New(scorer.New(scorer.DefaultWeights()), 0.3)
	assert.Nil(t, e.ClusterLibrary([]store.Track{track("a", 120, "C major")}))
}

func TestClusterLibraryGroupsSimilarTracks(t *testing.T) {
	e := New(scorer.New(scorer.DefaultWeights()), 0.1)
	tracks := []store.Track{
		track("a", 120, "C major"),
		track("b", 121, "C major"),
		track("c", 60, "A minor"),
	}
	clusters := e.ClusterLibrary(tracks)
	require.NotEmpty(t, clusters)

	total := 0
	for _, c := range clusters {
		total += c.TrackCount
	}
	assert.Equal(t, 3, total)
}

func TestWithCacheTTLOverridesDefault(t *testing.T) {
	e := New(scorer.New(scorer.DefaultWeights()), 0.3)
	assert.Equal(t, time.Hour, e.cacheTTL)

	e.WithCacheTTL(5 * time.Minute)
	assert.Equal(t, 5*time.Minute, e.cacheTTL)

	e.WithCacheTTL(0) // non-positive is ignored, keeps the prior value
	assert.Equal(t, 5*time.Minute, e.cacheTTL)
}
