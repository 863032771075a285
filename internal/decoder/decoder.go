// Package decoder turns an audio file on disk into the mono float64 PCM
// waveform the fingerprint extractor consumes, grounded on the teacher's
// FFmpegDecoder (audio/decoder.go) and generalized to the fixed analysis
// rate and format the extractor requires (SPEC_FULL §4.1).
package decoder

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"time"

	"github.com/soundprint/soundprint/internal/errs"
	"github.com/soundprint/soundprint/internal/fingerprint"
)

// Timeout bounds a single decode; the teacher's worker uses a 5-minute
// ceiling for the equivalent ffmpeg invocation.
const Timeout = 5 * time.Minute

// minSamples zero-pads short clips up to one second so every downstream
// frame computation (fftSize=2048 @ hop 512) has at least one full frame.
const minSamples = fingerprint.SampleRate

// Decoder decodes a file to mono PCM at fingerprint.SampleRate via ffmpeg.
type Decoder struct {
	ffmpegPath string
}

// New locates ffmpeg on PATH. Returns a DecodeError if it cannot be found,
// since every decode depends on it.
func New() (*Decoder, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, errs.New(errs.KindDecode, "decoder.New", err)
	}
	return &Decoder{ffmpegPath: path}, nil
}

// Decode reads path and returns mono float64 samples normalized to
// [-1, 1] at fingerprint.SampleRate Hz. A context deadline is applied if
// ctx carries none already.
func (d *Decoder) Decode(ctx context.Context, path string) ([]float64, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, Timeout)
		defer cancel()
	}

	args := []string{
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", fingerprint.SampleRate),
		"-",
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errs.New(errs.KindTimeout, "decoder.Decode", ctx.Err())
		}
		return nil, errs.New(errs.KindDecode, "decoder.Decode",
			fmt.Errorf("ffmpeg: %w: %s", err, stderr.String()))
	}

	samples := pcm16ToFloat64(stdout.Bytes())
	if len(samples) < minSamples {
		padded := make([]float64, minSamples)
		copy(padded, samples)
		samples = padded
	}
	return samples, nil
}

func pcm16ToFloat64(raw []byte) []float64 {
	n := len(raw) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		out[i] = float64(v) / 32768.0
	}
	return out
}
