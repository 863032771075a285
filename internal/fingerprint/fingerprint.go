// Package fingerprint extracts a fixed-schema acoustic fingerprint from a
// decoded waveform: timbral (MFCC), harmonic (chroma/tonnetz), rhythmic
// (tempo/onset), tonal (key), and dynamic (RMS/energy) descriptors.
package fingerprint

const (
	// NumMFCC is the number of Mel-frequency cepstral coefficients retained.
	NumMFCC = 13
	// NumChroma is the number of pitch classes in a chromagram.
	NumChroma = 12
	// NumContrastBands is the number of spectral-contrast sub-bands.
	NumContrastBands = 7
	// NumTonnetz is the dimensionality of the tonal-centroid representation.
	NumTonnetz = 6

	// HopLength is the frame hop size in samples (§4.2).
	HopLength = 512
	// SampleRate is the fixed analysis sample rate in Hz (§4.1).
	SampleRate = 22050

	// epsilon guards the harmonic/percussive ratio against divide-by-zero.
	epsilon = 1e-10

	// UnknownKey labels a Fingerprint whose key could not be determined.
	UnknownKey = "Unknown"
)

// Fingerprint is the immutable, closed-record acoustic identity of a track.
// Every field is always present (defaults applied at construction); callers
// never test for field presence. See spec §3.
type Fingerprint struct {
	MFCCMean [NumMFCC]float64
	MFCCStd  [NumMFCC]float64

	ChromaMean [NumChroma]float64
	ChromaStd  [NumChroma]float64

	SpectralCentroidMean float64
	SpectralCentroidStd  float64
	SpectralRolloffMean  float64
	SpectralRolloffStd   float64
	SpectralBandwidthMean float64
	SpectralBandwidthStd  float64

	ZeroCrossingRateMean float64
	ZeroCrossingRateStd  float64

	SpectralContrastMean [NumContrastBands]float64
	SpectralContrastStd  [NumContrastBands]float64

	TonnetzMean [NumTonnetz]float64
	TonnetzStd  [NumTonnetz]float64

	Tempo              float64
	OnsetStrengthMean  float64
	OnsetStrengthStd   float64

	HarmonicEnergy          float64
	PercussiveEnergy        float64
	HarmonicPercussiveRatio float64

	RMSEnergyMean float64
	RMSEnergyStd  float64
	DynamicRange  float64

	MelSpectralMean float64
	MelSpectralStd  float64

	Key string

	Energy float64

	// Extras is the auxiliary, non-vectorized explainability bundle
	// (SPEC_FULL §3 [EXPANDED]). It is never fed to FeatureVectorizer.
	Extras Extras
}

// Extras carries auxiliary descriptors computed alongside the canonical
// Fingerprint fields: explanatory-only, never indexed or vectorized.
type Extras struct {
	AttackSharpness  float64
	HarmonicDensity  float64
	RhythmComplexity float64
	Instruments      InstrumentProfile
}

// InstrumentProfile holds instrument-family presence scores in [0, 1],
// grounded on the teacher's spectral-heuristic instrument detector.
type InstrumentProfile struct {
	BrassLike         float64
	StringLike        float64
	WoodwindLike      float64
	Percussive        float64
	SynthPad          float64
	VocalPresence     float64
	ArticulationStyle float64
	EnsembleSize      float64
	PlayingIntensity  float64
}

// Zero returns a zero-initialized Fingerprint with Key set to "Unknown", the
// value the extractor's failure policy substitutes whenever extraction
// panics or otherwise cannot produce a real result (§4.2, §9).
func Zero() Fingerprint {
	return Fingerprint{Key: UnknownKey}
}

// computeHPRatio applies the fixed epsilon used for divide-by-zero safety
// (§3 invariant).
func computeHPRatio(harmonic, percussive float64) float64 {
	return harmonic / (percussive + epsilon)
}
