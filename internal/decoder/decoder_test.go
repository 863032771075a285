package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPCM16ToFloat64Range(t *testing.T) {
	raw := []byte{0x00, 0x80, 0xff, 0x7f} // min int16, max int16, little-endian
	samples := pcm16ToFloat64(raw)
	assert := assert.New(t)
	assert.Len(samples, 2)
	assert.InDelta(-1.0, samples[0], 1e-4)
	assert.InDelta(0.99997, samples[1], 1e-4)
}

func TestPCM16ToFloat64Empty(t *testing.T) {
	assert.Empty(t, pcm16ToFloat64(nil))
}
