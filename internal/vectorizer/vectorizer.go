// Package vectorizer flattens a fingerprint.Fingerprint into the fixed
// D-dimensional vector the similarity index operates on. The layout is a
// frozen, versioned schema: reordering or resizing it invalidates every
// vector already in an index (SPEC_FULL §4.3).
package vectorizer

import "github.com/soundprint/soundprint/internal/fingerprint"

// Dimensions is the length of every vector this package produces.
const Dimensions = 20 + 2*fingerprint.NumMFCC + 2*fingerprint.NumChroma +
	2*fingerprint.NumContrastBands + 2*fingerprint.NumTonnetz

// SchemaVersion identifies the vector layout. internal/index does not
// record or compare it; the index rejects only vectors whose length is not
// Dimensions.
const SchemaVersion = 1

// Vectorize flattens fp into a Dimensions-length vector. The field order is
// frozen: 20 scalar features in a fixed order, then the array features
// (mfcc, mfcc_std, chroma, chroma_std, spectral_contrast,
// spectral_contrast_std, tonnetz, tonnetz_std) each appended in full.
func Vectorize(fp fingerprint.Fingerprint) []float64 {
	v := make([]float64, 0, Dimensions)

	v = append(v,
		fp.SpectralCentroidMean,
		fp.SpectralCentroidStd,
		fp.SpectralRolloffMean,
		fp.SpectralRolloffStd,
		fp.ZeroCrossingRateMean,
		fp.ZeroCrossingRateStd,
		fp.SpectralBandwidthMean,
		fp.SpectralBandwidthStd,
		fp.Tempo,
		fp.OnsetStrengthMean,
		fp.OnsetStrengthStd,
		fp.HarmonicEnergy,
		fp.PercussiveEnergy,
		fp.HarmonicPercussiveRatio,
		fp.RMSEnergyMean,
		fp.RMSEnergyStd,
		fp.DynamicRange,
		fp.MelSpectralMean,
		fp.MelSpectralStd,
		fp.Energy,
	)

	v = appendArray(v, fp.MFCCMean[:])
	v = appendArray(v, fp.MFCCStd[:])
	v = appendArray(v, fp.ChromaMean[:])
	v = appendArray(v, fp.ChromaStd[:])
	v = appendArray(v, fp.SpectralContrastMean[:])
	v = appendArray(v, fp.SpectralContrastStd[:])
	v = appendArray(v, fp.TonnetzMean[:])
	v = appendArray(v, fp.TonnetzStd[:])

	return v
}

func appendArray(dst, src []float64) []float64 {
	return append(dst, src...)
}
