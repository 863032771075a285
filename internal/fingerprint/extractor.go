package fingerprint

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/soundprint/soundprint/internal/errs"
)

const (
	// fftSize is the analysis window size in samples; 2048 at 22050 Hz gives
	// ~10.8 Hz bin resolution, adequate for the mel/chroma/contrast bands
	// below. Grounded on the teacher's analysisFFTSize.
	fftSize = 2048
	// numMelFilters is the mel filterbank width feeding the MFCC DCT.
	numMelFilters = 40
	// hpssMedianFrames / hpssMedianBins are the median-filter window lengths
	// used by the harmonic/percussive split (§4.2.1).
	hpssMedianFrames = 17
	hpssMedianBins   = 17

	rolloffPercent = 0.85
)

// Extractor turns a decoded mono waveform into a Fingerprint. It is
// deterministic given (samples, sampleRate) and never panics to the
// caller: any internal failure degrades to a zero Fingerprint (§4.2).
type Extractor struct {
	mu sync.Mutex

	fft        *fourier.FFT
	window     []float64
	melFilters [][]float64
	sampleRate int

	majorProfile [NumChroma]float64
	minorProfile [NumChroma]float64

	log *zap.Logger
}

// NewExtractor builds an Extractor for the given sample rate. sampleRate
// should normally be fingerprint.SampleRate (the Decoder's fixed output
// rate); it is accepted as a parameter so tests can exercise other rates.
func NewExtractor(sampleRate int, log *zap.Logger) *Extractor {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if log == nil {
		log = zap.NewNop()
	}

	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}

	return &Extractor{
		fft:        fourier.NewFFT(fftSize),
		window:     window,
		melFilters: createMelFilterbank(numMelFilters, fftSize, sampleRate),
		sampleRate: sampleRate,
		majorProfile: [NumChroma]float64{
			6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88,
		},
		minorProfile: [NumChroma]float64{
			6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17,
		},
		log: log,
	}
}

// Extract computes a Fingerprint from samples (mono, at sampleRate). Any
// panic during extraction is recovered and logged; the caller always gets a
// usable Fingerprint back, degraded to Zero() on failure (§4.2 failure
// policy, §9 "exceptions as degradation").
func (e *Extractor) Extract(samples []float64, sampleRate int) (fp Fingerprint, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("feature extraction panicked, degrading to zero fingerprint",
				zap.Any("panic", r))
			fp = Zero()
			err = nil
		}
	}()

	if len(samples) == 0 {
		return Zero(), nil
	}
	if sampleRate <= 0 {
		sampleRate = e.sampleRate
	}

	frames := e.frameSpectra(samples)
	if len(frames) == 0 {
		return Zero(), nil
	}

	return e.aggregate(samples, frames), nil
}

// frame bundles the per-frame analysis results accumulated while scanning
// the waveform once.
type frame struct {
	spectrum []float64 // magnitude spectrum, length fftSize/2
	raw      []float64 // windowed time-domain samples, length fftSize
}

// frameSpectra slices samples into overlapping Hann-windowed frames and
// computes each frame's magnitude spectrum.
func (e *Extractor) frameSpectra(samples []float64) []frame {
	numFrames := (len(samples) - fftSize) / HopLength
	if numFrames < 1 {
		numFrames = 0
		if len(samples) >= fftSize {
			numFrames = 1
		}
	}
	if numFrames < 1 {
		return nil
	}

	frames := make([]frame, 0, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * HopLength
		end := start + fftSize
		if end > len(samples) {
			break
		}
		raw := make([]float64, fftSize)
		copy(raw, samples[start:end])

		windowed := make([]float64, fftSize)
		for j := 0; j < fftSize; j++ {
			windowed[j] = raw[j] * e.window[j]
		}

		coeffs := e.fft.Coefficients(nil, windowed)
		spectrum := make([]float64, fftSize/2)
		for j := range spectrum {
			re := real(coeffs[j])
			im := imag(coeffs[j])
			spectrum[j] = math.Sqrt(re*re + im*im)
		}

		frames = append(frames, frame{spectrum: spectrum, raw: raw})
	}
	return frames
}

// aggregate walks the per-frame spectra once, accumulating every channel's
// running statistics, then finalizes means/stds and the whole-signal
// descriptors (HPSS energies, key, tempo, overall energy).
func (e *Extractor) aggregate(samples []float64, frames []frame) Fingerprint {
	n := len(frames)

	mfccAccum := make([][]float64, n)
	chromaAccum := make([][]float64, n)
	contrastAccum := make([][]float64, n)
	centroid := make([]float64, n)
	rolloff := make([]float64, n)
	bandwidth := make([]float64, n)
	zcr := make([]float64, n)
	rms := make([]float64, n)
	flux := make([]float64, n)
	melRaw := make([][]float64, n) // pre-dB mel energies, for global mel stats

	var prevSpectrum []float64

	for i, fr := range frames {
		melEnergies, mfcc := e.computeMFCC(fr.spectrum)
		mfccAccum[i] = mfcc
		melRaw[i] = melEnergies

		chromaAccum[i] = chromaFromSpectrum(fr.spectrum, e.sampleRate, fftSize)
		contrastAccum[i] = spectralContrast(fr.spectrum)

		c := spectralCentroid(fr.spectrum, e.sampleRate, fftSize)
		centroid[i] = c
		rolloff[i] = spectralRolloff(fr.spectrum, e.sampleRate, fftSize, rolloffPercent)
		bandwidth[i] = spectralBandwidth(fr.spectrum, e.sampleRate, fftSize, c)
		zcr[i] = zeroCrossingRate(fr.raw)
		rms[i] = rmsEnergy(fr.raw)
		flux[i] = spectralFlux(fr.spectrum, prevSpectrum)
		prevSpectrum = fr.spectrum
	}

	harmonicChroma, harmonicEnergy, percussiveEnergy := harmonicPercussiveSplit(frames, e.sampleRate)

	fp := Fingerprint{}
	fp.MFCCMean, fp.MFCCStd = meanStdCols(mfccAccum, NumMFCC)
	for c := 0; c < NumChroma; c++ {
		vals := make([]float64, n)
		for i, row := range chromaAccum {
			vals[i] = row[c]
		}
		fp.ChromaMean[c], fp.ChromaStd[c] = meanStd(vals)
	}
	fp.SpectralContrastMean, fp.SpectralContrastStd = meanStdCols7(contrastAccum)

	fp.SpectralCentroidMean, fp.SpectralCentroidStd = meanStd(centroid)
	fp.SpectralRolloffMean, fp.SpectralRolloffStd = meanStd(rolloff)
	fp.SpectralBandwidthMean, fp.SpectralBandwidthStd = meanStd(bandwidth)
	fp.ZeroCrossingRateMean, fp.ZeroCrossingRateStd = meanStd(zcr)
	fp.RMSEnergyMean, fp.RMSEnergyStd = meanStd(rms)
	fp.DynamicRange = dynamicRange(rms)

	onset := positiveFlux(flux)
	fp.OnsetStrengthMean, fp.OnsetStrengthStd = meanStd(onset)
	fp.Tempo = estimateTempo(onset, e.sampleRate)

	fp.HarmonicEnergy = harmonicEnergy
	fp.PercussiveEnergy = percussiveEnergy
	fp.HarmonicPercussiveRatio = computeHPRatio(harmonicEnergy, percussiveEnergy)

	tonnetzAccum := make([][]float64, len(harmonicChroma))
	for i, c := range harmonicChroma {
		t := tonnetz(c)
		tonnetzAccum[i] = t[:]
	}
	fp.TonnetzMean, fp.TonnetzStd = meanStdCols6(tonnetzAccum)

	fp.MelSpectralMean, fp.MelSpectralStd = melSpectralDB(melRaw)

	fp.Key = estimateKey(harmonicChroma, e.majorProfile, e.minorProfile)

	var energySum float64
	for _, s := range samples {
		energySum += s * s
	}
	fp.Energy = energySum / float64(len(samples))

	fp.Extras = computeExtras(samples, frames, flux, onset, fp.MFCCStd)

	return fp
}

// --- per-frame feature math, generalized from the teacher's features.go ---

func (e *Extractor) computeMFCC(spectrum []float64) (melEnergies, mfcc []float64) {
	melEnergies = make([]float64, numMelFilters)
	for i := 0; i < numMelFilters; i++ {
		for j := 0; j < len(spectrum) && j < len(e.melFilters[i]); j++ {
			melEnergies[i] += spectrum[j] * spectrum[j] * e.melFilters[i][j]
		}
	}

	logMel := make([]float64, numMelFilters)
	for i, v := range melEnergies {
		if v < 1e-10 {
			v = 1e-10
		}
		logMel[i] = math.Log(v)
	}

	mfcc = make([]float64, NumMFCC)
	for i := 0; i < NumMFCC; i++ {
		var sum float64
		for j := 0; j < numMelFilters; j++ {
			sum += logMel[j] * math.Cos(math.Pi*float64(i)*(float64(j)+0.5)/float64(numMelFilters))
		}
		mfcc[i] = sum
	}
	return melEnergies, mfcc
}

func spectralCentroid(spectrum []float64, sampleRate, fftN int) float64 {
	freqPerBin := float64(sampleRate) / float64(fftN)
	var weighted, sum float64
	for i, mag := range spectrum {
		freq := float64(i) * freqPerBin
		weighted += freq * mag
		sum += mag
	}
	if sum == 0 {
		return 0
	}
	return weighted / sum
}

func spectralRolloff(spectrum []float64, sampleRate, fftN int, pct float64) float64 {
	var total float64
	for _, mag := range spectrum {
		total += mag * mag
	}
	threshold := total * pct
	freqPerBin := float64(sampleRate) / float64(fftN)

	var cum float64
	for i, mag := range spectrum {
		cum += mag * mag
		if cum >= threshold {
			return float64(i) * freqPerBin
		}
	}
	return float64(len(spectrum)) * freqPerBin
}

func spectralBandwidth(spectrum []float64, sampleRate, fftN int, centroid float64) float64 {
	freqPerBin := float64(sampleRate) / float64(fftN)
	var weighted, sum float64
	for i, mag := range spectrum {
		freq := float64(i) * freqPerBin
		d := freq - centroid
		weighted += d * d * mag
		sum += mag
	}
	if sum == 0 {
		return 0
	}
	return math.Sqrt(weighted / sum)
}

func zeroCrossingRate(frame []float64) float64 {
	var crossings int
	for i := 1; i < len(frame); i++ {
		if (frame[i] >= 0) != (frame[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame))
}

func rmsEnergy(frame []float64) float64 {
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func spectralFlux(spectrum, prev []float64) float64 {
	if prev == nil {
		return 0
	}
	var flux float64
	for i := 0; i < len(spectrum) && i < len(prev); i++ {
		diff := spectrum[i] - prev[i]
		if diff > 0 {
			flux += diff * diff
		}
	}
	return math.Sqrt(flux)
}

// chromaFromSpectrum folds a magnitude spectrum into 12 pitch-class energy
// bins using equal-tempered note frequencies (A4 = 440 Hz).
func chromaFromSpectrum(spectrum []float64, sampleRate, fftN int) []float64 {
	chroma := make([]float64, NumChroma)
	freqPerBin := float64(sampleRate) / float64(fftN)

	for i, mag := range spectrum {
		freq := float64(i) * freqPerBin
		if freq < 20 {
			continue
		}
		// MIDI-ish pitch-class index relative to A4=440Hz.
		pc := int(math.Round(12*math.Log2(freq/440.0))) % 12
		if pc < 0 {
			pc += 12
		}
		chroma[pc] += mag * mag
	}
	return chroma
}

// spectralContrast computes a simple 7-sub-band peak/valley contrast:
// each sub-band's top-decile mean minus its bottom-decile mean, expressed
// on a log scale to approximate the dB-like spread librosa reports.
func spectralContrast(spectrum []float64) []float64 {
	contrast := make([]float64, NumContrastBands)
	n := len(spectrum)
	if n == 0 {
		return contrast
	}
	bandSize := n / NumContrastBands
	if bandSize == 0 {
		return contrast
	}
	for b := 0; b < NumContrastBands; b++ {
		start := b * bandSize
		end := start + bandSize
		if b == NumContrastBands-1 {
			end = n
		}
		band := append([]float64(nil), spectrum[start:end]...)
		sort.Float64s(band)
		k := len(band) / 10
		if k < 1 {
			k = 1
		}
		var valley, peak float64
		for i := 0; i < k; i++ {
			valley += band[i]
		}
		valley /= float64(k)
		for i := len(band) - k; i < len(band); i++ {
			peak += band[i]
		}
		peak /= float64(k)

		if valley < 1e-10 {
			valley = 1e-10
		}
		if peak < 1e-10 {
			peak = 1e-10
		}
		contrast[b] = math.Log10(peak / valley)
	}
	return contrast
}

func positiveFlux(flux []float64) []float64 {
	out := make([]float64, 0, len(flux))
	for _, f := range flux {
		if f > 0 {
			out = append(out, f)
		}
	}
	return out
}

func estimateTempo(onset []float64, sampleRate int) float64 {
	if len(onset) < 10 {
		return 0
	}

	hopDuration := float64(HopLength) / float64(sampleRate)
	minLag := int(60.0 / 200.0 / hopDuration) // 200 BPM ceiling
	maxLag := int(60.0 / 60.0 / hopDuration)  // 60 BPM floor
	if maxLag >= len(onset) {
		maxLag = len(onset) - 1
	}
	if minLag < 1 {
		minLag = 1
	}
	if maxLag < minLag {
		return 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i < len(onset)-lag; i++ {
			corr += onset[i] * onset[i+lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0
	}

	bpm := 60.0 / (float64(bestLag) * hopDuration)
	if bpm < 60 {
		bpm = 60
	}
	if bpm > 200 {
		bpm = 200
	}
	return bpm
}

func dynamicRange(rms []float64) float64 {
	if len(rms) == 0 {
		return 0
	}
	mx, mn := rms[0], rms[0]
	for _, v := range rms {
		if v > mx {
			mx = v
		}
		if v < mn {
			mn = v
		}
	}
	if mx < mn {
		return 0
	}
	return mx - mn
}

// tonnetz maps a 12-bin chroma vector onto 6 tonal-centroid coordinates:
// (cos, sin) pairs on the circle of fifths, the minor-third circle, and the
// major-third circle, each weighted by the L1-normalized chroma energy.
func tonnetz(chroma []float64) [NumTonnetz]float64 {
	var out [NumTonnetz]float64
	var sum float64
	for _, v := range chroma {
		sum += v
	}
	if sum <= 0 {
		return out
	}

	steps := [3]float64{7, 3, 4} // semitone step per circle: fifths, minor 3rd, major 3rd
	radius := [3]float64{1.0, 1.0, 0.5}

	for k := 0; k < 3; k++ {
		var cosSum, sinSum float64
		for pc := 0; pc < NumChroma; pc++ {
			weight := chroma[pc] / sum
			angle := 2 * math.Pi * float64(pc) * steps[k] / 12
			cosSum += weight * math.Cos(angle)
			sinSum += weight * math.Sin(angle)
		}
		out[2*k] = radius[k] * cosSum
		out[2*k+1] = radius[k] * sinSum
	}
	return out
}

// melSpectralDB converts raw per-frame mel energies to a dB scale with
// ref=max (the global peak across every frame and filter), then returns the
// global mean/std, matching the "mel_spectral_{mean,std}" contract (§3).
func melSpectralDB(melRaw [][]float64) (mean, std float64) {
	if len(melRaw) == 0 {
		return 0, 0
	}
	maxVal := 1e-10
	for _, row := range melRaw {
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
	}

	var all []float64
	for _, row := range melRaw {
		for _, v := range row {
			if v < 1e-10 {
				v = 1e-10
			}
			all = append(all, 10*math.Log10(v/maxVal))
		}
	}
	return meanStd(all)
}

// estimateKey implements the Krumhansl-Schmuckler procedure from spec
// §4.2.1: average the harmonic chromagram, L1-normalize, correlate each of
// the 12 rotations against both profiles, and take the best; major wins
// ties (checked first, minor can only overwrite on strictly greater
// correlation). Degenerate input (zero sum, NaN correlation) yields
// "Unknown".
func estimateKey(harmonicChroma [][]float64, majorProfile, minorProfile [NumChroma]float64) string {
	if len(harmonicChroma) == 0 {
		return UnknownKey
	}

	var mean [NumChroma]float64
	for _, c := range harmonicChroma {
		for i := 0; i < NumChroma && i < len(c); i++ {
			mean[i] += c[i]
		}
	}
	var sum float64
	for i := range mean {
		mean[i] /= float64(len(harmonicChroma))
		sum += mean[i]
	}
	if sum <= 0 {
		return UnknownKey
	}
	for i := range mean {
		mean[i] /= sum
	}

	names := [NumChroma]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

	bestCorr := math.Inf(-1)
	bestKey := UnknownKey
	found := false

	for root := 0; root < NumChroma; root++ {
		majorRot := rotate(majorProfile, root)
		minorRot := rotate(minorProfile, root)

		majorCorr := stat.Correlation(mean[:], majorRot[:], nil)
		if !math.IsNaN(majorCorr) && majorCorr > bestCorr {
			bestCorr = majorCorr
			bestKey = names[root] + " major"
			found = true
		}

		minorCorr := stat.Correlation(mean[:], minorRot[:], nil)
		if !math.IsNaN(minorCorr) && minorCorr > bestCorr {
			bestCorr = minorCorr
			bestKey = names[root] + " minor"
			found = true
		}
	}

	if !found {
		return UnknownKey
	}
	return bestKey
}

func rotate(profile [NumChroma]float64, by int) [NumChroma]float64 {
	var out [NumChroma]float64
	for i := 0; i < NumChroma; i++ {
		out[(i+by)%NumChroma] = profile[i]
	}
	return out
}

// --- statistics helpers ---

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	n := float64(len(values))
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return mean, std
}

func meanStdCols(rows [][]float64, cols int) (mean, std [13]float64) {
	if cols != NumMFCC {
		panic("meanStdCols: unexpected column count")
	}
	for c := 0; c < cols; c++ {
		vals := make([]float64, len(rows))
		for i, row := range rows {
			if c < len(row) {
				vals[i] = row[c]
			}
		}
		m, s := meanStd(vals)
		mean[c], std[c] = m, s
	}
	return mean, std
}

func meanStdCols6(rows [][]float64) (mean, std [NumTonnetz]float64) {
	for c := 0; c < NumTonnetz; c++ {
		vals := make([]float64, len(rows))
		for i, row := range rows {
			if c < len(row) {
				vals[i] = row[c]
			}
		}
		m, s := meanStd(vals)
		mean[c], std[c] = m, s
	}
	return mean, std
}

func meanStdCols7(rows [][]float64) (mean, std [NumContrastBands]float64) {
	for c := 0; c < NumContrastBands; c++ {
		vals := make([]float64, len(rows))
		for i, row := range rows {
			if c < len(row) {
				vals[i] = row[c]
			}
		}
		m, s := meanStd(vals)
		mean[c], std[c] = m, s
	}
	return mean, std
}

// createMelFilterbank builds a triangular mel filterbank, grounded
// unchanged on the teacher's createMelFilterbank.
func createMelFilterbank(numFilters, fftN, sampleRate int) [][]float64 {
	hzToMel := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	melToHz := func(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

	nyquist := float64(sampleRate) / 2
	lowMel := hzToMel(20)
	highMel := hzToMel(nyquist)

	melPoints := make([]float64, numFilters+2)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*(highMel-lowMel)/float64(numFilters+1)
	}
	hzPoints := make([]float64, numFilters+2)
	for i := range hzPoints {
		hzPoints[i] = melToHz(melPoints[i])
	}
	binPoints := make([]int, numFilters+2)
	for i := range binPoints {
		binPoints[i] = int(math.Floor(hzPoints[i] * float64(fftN) / float64(sampleRate)))
	}

	filters := make([][]float64, numFilters)
	for i := 0; i < numFilters; i++ {
		filters[i] = make([]float64, fftN/2)
		for j := binPoints[i]; j < binPoints[i+1] && j < fftN/2; j++ {
			if binPoints[i+1] != binPoints[i] {
				filters[i][j] = float64(j-binPoints[i]) / float64(binPoints[i+1]-binPoints[i])
			}
		}
		for j := binPoints[i+1]; j < binPoints[i+2] && j < fftN/2; j++ {
			if binPoints[i+2] != binPoints[i+1] {
				filters[i][j] = float64(binPoints[i+2]-j) / float64(binPoints[i+2]-binPoints[i+1])
			}
		}
	}
	return filters
}

// decodeErrorHint is unused by Extract itself (extraction errors never
// propagate, per §7) but documents the Kind a caller should use if it
// chooses to surface a hard failure from a wrapping layer instead.
var decodeErrorHint = errs.KindFeature
