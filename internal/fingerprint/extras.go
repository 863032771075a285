package fingerprint

import "math"

// computeExtras derives the auxiliary, non-indexed descriptor bundle
// (SPEC_FULL §3 [EXPANDED]), grounded on the teacher's instruments.go
// heuristics and its computeRhythmComplexity/attack-sharpness pattern in
// features.go. These values explain a match; they never feed the
// vectorizer or the index.
func computeExtras(samples []float64, frames []frame, flux, onset []float64, mfccStd [NumMFCC]float64) Extras {
	return Extras{
		AttackSharpness:  attackSharpness(frames),
		HarmonicDensity:  harmonicDensity(mfccStd),
		RhythmComplexity: rhythmComplexity(onset),
		Instruments:      detectInstruments(frames, flux),
	}
}

// attackSharpness measures how quickly energy rises into onsets: the mean
// frame-to-frame RMS increase, normalized by overall RMS.
func attackSharpness(frames []frame) float64 {
	if len(frames) < 2 {
		return 0
	}
	var risesSum, baseSum float64
	var prevRMS float64
	for i, fr := range frames {
		r := rmsEnergy(fr.raw)
		if i > 0 {
			rise := r - prevRMS
			if rise > 0 {
				risesSum += rise
			}
		}
		baseSum += r
		prevRMS = r
	}
	base := baseSum / float64(len(frames))
	if base < 1e-10 {
		return 0
	}
	return (risesSum / float64(len(frames))) / base
}

// harmonicDensity approximates timbral richness via the spread of the MFCC
// coefficients' standard deviations: a denser harmonic structure tends to
// produce more variable cepstral coefficients across a track.
func harmonicDensity(mfccStd [NumMFCC]float64) float64 {
	var sum float64
	for _, v := range mfccStd {
		sum += v * v
	}
	return math.Sqrt(sum / float64(NumMFCC))
}

// rhythmComplexity is the coefficient of variation of onset intervals,
// grounded on the teacher's computeRhythmComplexity: steady rhythms have
// near-zero variance, syncopated or free-time material has high variance.
func rhythmComplexity(onset []float64) float64 {
	if len(onset) < 3 {
		return 0
	}
	threshold := percentile(onset, 0.75)

	var intervals []float64
	lastPeak := -1
	for i, v := range onset {
		if v >= threshold {
			if lastPeak >= 0 {
				intervals = append(intervals, float64(i-lastPeak))
			}
			lastPeak = i
		}
	}
	if len(intervals) < 2 {
		return 0
	}
	mean, std := meanStd(intervals)
	if mean < 1e-10 {
		return 0
	}
	return std / mean
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// detectInstruments applies spectral-heuristic scoring for coarse
// instrument-family presence, generalized from the teacher's
// InstrumentDetector: each family is characterized by a band of spectral
// centroid and flux behavior rather than true timbral classification.
func detectInstruments(frames []frame, flux []float64) InstrumentProfile {
	if len(frames) == 0 {
		return InstrumentProfile{}
	}

	var centroids []float64
	for _, fr := range frames {
		centroids = append(centroids, spectralCentroid(fr.spectrum, SampleRate, fftSize))
	}
	centroidMean, _ := meanStd(centroids)
	_, fluxStd := meanStd(flux)

	clamp01 := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}

	nyquistFrac := centroidMean / (SampleRate / 2)

	return InstrumentProfile{
		BrassLike:         clamp01(1 - math.Abs(nyquistFrac-0.2)*3),
		StringLike:        clamp01(1 - math.Abs(nyquistFrac-0.12)*3),
		WoodwindLike:      clamp01(1 - math.Abs(nyquistFrac-0.25)*3),
		Percussive:        clamp01(fluxStd * 2),
		SynthPad:          clamp01(1 - fluxStd*3),
		VocalPresence:     clamp01(1 - math.Abs(nyquistFrac-0.15)*4),
		ArticulationStyle: clamp01(fluxStd),
		EnsembleSize:      clamp01(nyquistFrac),
		PlayingIntensity:  clamp01(fluxStd + nyquistFrac/2),
	}
}
