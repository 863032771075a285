package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundprint/soundprint/internal/fingerprint"
)

func TestScoreIdenticalFingerprintsIsOne(t *testing.T) {
	fp := fingerprint.Zero()
	fp.MFCCMean[0] = 1
	fp.ChromaMean[0] = 1
	fp.Tempo = 120
	fp.Energy = 0.5
	fp.Key = "C major"

	s := New(DefaultWeights())
	bd := s.Score(fp, fp)

	assert.InDelta(t, 1.0, bd.Overall, 1e-9)
	assert.InDelta(t, 1.0, bd.MFCC, 1e-9)
	assert.InDelta(t, 1.0, bd.Tempo, 1e-9)
	assert.InDelta(t, 1.0, bd.Key, 1e-9)
}

func TestScoreUnknownKeysAreNeutral(t *testing.T) {
	a := fingerprint.Zero()
	b := fingerprint.Zero()
	s := New(DefaultWeights())
	bd := s.Score(a, b)
	assert.Equal(t, 0.5, bd.Key)
}

func TestScoreMismatchedKeyPenalized(t *testing.T) {
	assert.Equal(t, 0.3, keySimilarity("C major", "F# minor"))
}

func TestTempoSimilarityUndeterminedContributesZero(t *testing.T) {
	assert.Equal(t, 0.0, tempoSimilarity(0, 0))
	assert.Equal(t, 0.0, tempoSimilarity(0, 120))
	assert.Equal(t, 0.0, tempoSimilarity(120, 0))
}

func TestTempoSimilaritySensitivity(t *testing.T) {
	// spec.md §8 scenario 2: 120 vs 180 BPM, max(a,b)=180.
	sim := tempoSimilarity(120, 180)
	assert.InDelta(t, 1-60.0/180.0, sim, 0.01)
}

func TestEnergySimilarityNeutralWhenEitherZero(t *testing.T) {
	assert.Equal(t, 0.5, energySimilarity(0, 5))
	assert.Equal(t, 0.5, energySimilarity(5, 0))
}

func TestCosineSimilarityClampsNegativeToZero(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{-1, 0}
	assert.Equal(t, 0.0, cosineSimilarity(a, b))
}

func TestOverallExcludesInstruments(t *testing.T) {
	a := fingerprint.Zero()
	b := fingerprint.Zero()
	a.Extras.Instruments.BrassLike = 1.0
	b.Extras.Instruments.BrassLike = 0.0

	s := New(DefaultWeights())
	bd := s.Score(a, b)

	// Instruments disagree completely, but Overall (0.075 energy + 0.05
	// key; mfcc/chroma/tempo all 0 for two zero fingerprints) is
	// unaffected by it.
	assert.Less(t, bd.Instruments, 1.0)
	assert.InDelta(t, 0.125, bd.Overall, 1e-9)
}
