// Package scorer computes the per-channel and overall weighted similarity
// between two fingerprints, grounded on the original's
// _calculate_detailed_similarity and generalized with the teacher's
// per-channel SimilarityEngine structure (cosine-based channel distances,
// weighted combination, explanatory breakdown).
package scorer

import (
	"math"

	"github.com/soundprint/soundprint/internal/fingerprint"
)

// Weights holds the five core channel weights from the original (mfcc
// .30, chroma .25, tempo .20, energy .15, key .10) plus the additive,
// non-core "instruments" explanatory channel (SPEC_FULL §4.5 [EXPANDED]).
// Instruments never participates in Overall; it exists purely to explain a
// match alongside it.
type Weights struct {
	MFCC        float64
	Chroma      float64
	Tempo       float64
	Energy      float64
	Key         float64
	Instruments float64
}

// DefaultWeights mirrors the original's weighting exactly.
func DefaultWeights() Weights {
	return Weights{
		MFCC:   0.30,
		Chroma: 0.25,
		Tempo:  0.20,
		Energy: 0.15,
		Key:    0.10,
	}
}

// Breakdown is the per-channel similarity explanation returned alongside a
// search result (SPEC_FULL §4.5).
type Breakdown struct {
	MFCC        float64
	Chroma      float64
	Tempo       float64
	Energy      float64
	Key         float64
	Instruments float64
	Overall     float64
}

// Scorer computes detailed similarity breakdowns between fingerprints.
type Scorer struct {
	weights Weights
}

func New(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the full channel breakdown and the core weighted Overall
// score. Overall never includes Instruments — it is informational only.
func (s *Scorer) Score(a, b fingerprint.Fingerprint) Breakdown {
	bd := Breakdown{
		MFCC:        cosineSimilarity(a.MFCCMean[:], b.MFCCMean[:]),
		Chroma:      cosineSimilarity(a.ChromaMean[:], b.ChromaMean[:]),
		Tempo:       tempoSimilarity(a.Tempo, b.Tempo),
		Energy:      energySimilarity(a.Energy, b.Energy),
		Key:         keySimilarity(a.Key, b.Key),
		Instruments: instrumentSimilarity(a.Extras.Instruments, b.Extras.Instruments),
	}

	w := s.weights
	totalWeight := w.MFCC + w.Chroma + w.Tempo + w.Energy + w.Key
	if totalWeight == 0 {
		return bd
	}
	weightedSum := bd.MFCC*w.MFCC + bd.Chroma*w.Chroma + bd.Tempo*w.Tempo +
		bd.Energy*w.Energy + bd.Key*w.Key
	bd.Overall = weightedSum / totalWeight
	return bd
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	return sim
}

// tempoSimilarity mirrors the original's relative-difference formula. A
// tempo of 0 means "undetermined" (spec.md §4.2 boundary behavior); an
// undetermined tempo on either side contributes no similarity rather than
// falling back to a default BPM, per spec.md §8 scenario 3.
func tempoSimilarity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	denom := math.Max(a, math.Max(b, 1))
	diff := math.Abs(a-b) / denom
	sim := 1 - diff
	if sim < 0 {
		return 0
	}
	return sim
}

// energySimilarity mirrors the original: a ratio of the smaller to the
// larger when both are known positive energies, else a neutral 0.5.
func energySimilarity(a, b float64) float64 {
	if a > 0 && b > 0 {
		return math.Min(a, b) / math.Max(a, b)
	}
	return 0.5
}

// keySimilarity mirrors the original's simple exact-match rule: 1.0 on
// match, 0.3 on mismatch, 0.5 when either key is unknown.
func keySimilarity(a, b string) float64 {
	if a == fingerprint.UnknownKey || b == fingerprint.UnknownKey || a == "" || b == "" {
		return 0.5
	}
	if a == b {
		return 1.0
	}
	return 0.3
}

// instrumentSimilarity averages a per-field 1-|delta| agreement across the
// instrument profile, since every field is already normalized to [0, 1].
func instrumentSimilarity(a, b fingerprint.InstrumentProfile) float64 {
	diffs := []float64{
		math.Abs(a.BrassLike - b.BrassLike),
		math.Abs(a.StringLike - b.StringLike),
		math.Abs(a.WoodwindLike - b.WoodwindLike),
		math.Abs(a.Percussive - b.Percussive),
		math.Abs(a.SynthPad - b.SynthPad),
		math.Abs(a.VocalPresence - b.VocalPresence),
		math.Abs(a.ArticulationStyle - b.ArticulationStyle),
		math.Abs(a.EnsembleSize - b.EnsembleSize),
		math.Abs(a.PlayingIntensity - b.PlayingIntensity),
	}
	var sum float64
	for _, d := range diffs {
		sum += 1 - d
	}
	return sum / float64(len(diffs))
}
