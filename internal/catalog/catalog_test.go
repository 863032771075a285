package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundprint/soundprint/internal/fingerprint"
)

func TestToFeatureSetClampsTempo(t *testing.T) {
	fp := fingerprint.Zero()
	fp.Tempo = 400
	fs := toFeatureSet(fp)
	assert.Equal(t, 200.0, fs.Tempo)
}

func TestToFeatureSetDefaultsZeroTempo(t *testing.T) {
	fp := fingerprint.Zero()
	fs := toFeatureSet(fp)
	assert.Equal(t, 120.0, fs.Tempo)
}

func TestToFeatureSetValenceFromKey(t *testing.T) {
	minor := fingerprint.Zero()
	minor.Key = "A minor"
	assert.Equal(t, 0.3, toFeatureSet(minor).Valence)

	major := fingerprint.Zero()
	major.Key = "C major"
	assert.Equal(t, 0.7, toFeatureSet(major).Valence)
}

func TestFeatureSimilarityIdenticalIsOne(t *testing.T) {
	fs := toFeatureSet(fingerprint.Zero())
	assert.InDelta(t, 1.0, featureSimilarity(fs, fs), 1e-9)
}

func TestNewRecommendationAdapterRequiresCredentials(t *testing.T) {
	_, err := NewRecommendationAdapter("http://example.test", "", "secret")
	assert.Error(t, err)
}

func TestNewAcousticAdapterRequiresCredentials(t *testing.T) {
	_, err := NewAcousticAdapter("host", "key", "")
	assert.Error(t, err)
}

func TestAcousticSignatureIsDeterministic(t *testing.T) {
	a := &AcousticAdapter{accessKey: "key", accessSecret: "secret"}
	sig1 := a.sign("1700000000")
	sig2 := a.sign("1700000000")
	assert.Equal(t, sig1, sig2)
	assert.NotEmpty(t, sig1)
}
