// Package catalog adapts external music services as optional similarity
// sources: a recommendation-by-audio-features adapter (grounded on the
// original's Spotify integration) and an acoustic-ID adapter (grounded on
// its ACRCloud integration). Both degrade gracefully: missing credentials
// silently disable an adapter (AuthError), and a transport/parse failure
// degrades the search to an empty result (CatalogError) rather than
// failing the whole query (SPEC_FULL §6, §7).
package catalog

import (
	"math"
	"strings"

	"github.com/soundprint/soundprint/internal/fingerprint"
)

// Match is one externally-sourced candidate, normalized to the shape the
// ingest/query layer already uses for local index results.
type Match struct {
	Title      string
	Artist     string
	Album      string
	Similarity float64
	Source     string
}

// featureSet mirrors the original's Spotify-feature mapping: tempo/energy
// taken from the fingerprint, everything else defaulted, and valence
// nudged by major/minor key.
type featureSet struct {
	Tempo            float64
	Energy           float64
	Acousticness     float64
	Danceability     float64
	Instrumentalness float64
	Liveness         float64
	Loudness         float64
	Speechiness      float64
	Valence          float64
}

func toFeatureSet(fp fingerprint.Fingerprint) featureSet {
	tempo := fp.Tempo
	if tempo == 0 {
		tempo = 120
	}
	tempo = clamp(tempo, 60, 200)
	energy := clamp(fp.Energy, 0, 1)

	fs := featureSet{
		Tempo:            tempo,
		Energy:           energy,
		Acousticness:     0.5,
		Danceability:     clamp(energy*0.8, 0, 1),
		Instrumentalness: 0.7,
		Liveness:         0.1,
		Loudness:         -10,
		Speechiness:      0.1,
		Valence:          0.5,
	}

	key := strings.ToLower(fp.Key)
	switch {
	case strings.Contains(key, "minor"):
		fs.Valence = 0.3
	case strings.Contains(key, "major"):
		fs.Valence = 0.7
	}
	return fs
}

// featureSimilarity mirrors the original's _calculate_spotify_similarity:
// a per-field 1-|delta| average over the bounded-[0,1] features plus a
// relative-difference tempo term, averaged together.
func featureSimilarity(a, b featureSet) float64 {
	diffs := []float64{
		1 - math.Abs(a.Acousticness-b.Acousticness),
		1 - math.Abs(a.Danceability-b.Danceability),
		1 - math.Abs(a.Energy-b.Energy),
		1 - math.Abs(a.Instrumentalness-b.Instrumentalness),
		1 - math.Abs(a.Liveness-b.Liveness),
		1 - math.Abs(a.Speechiness-b.Speechiness),
		1 - math.Abs(a.Valence-b.Valence),
	}

	tempoDiff := math.Abs(a.Tempo-b.Tempo) / math.Max(a.Tempo, math.Max(b.Tempo, 1))
	tempoSim := 1 - tempoDiff
	if tempoSim < 0 {
		tempoSim = 0
	}
	diffs = append(diffs, tempoSim)

	var sum float64
	for _, d := range diffs {
		sum += d
	}
	return sum / float64(len(diffs))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
