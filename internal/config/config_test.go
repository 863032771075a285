package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 22050, cfg.SampleRate)
	assert.Equal(t, 512, cfg.HopLength)
	assert.Equal(t, 13, cfg.NMFCC)
	assert.Equal(t, 20, cfg.MaxResults)
	assert.Equal(t, 0.7, cfg.Threshold)
	assert.Equal(t, "local", cfg.SearchMode)
	assert.Equal(t, 100, cfg.RebuildEvery)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestValidateRejectsBadSearchMode(t *testing.T) {
	err := validate(&Config{SearchMode: "nonsense", MaxResults: 1})
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	err := validate(&Config{SearchMode: "local", Threshold: 1.5, MaxResults: 1})
	assert.Error(t, err)
}

func TestValidateRejectsNonPositiveMaxResults(t *testing.T) {
	err := validate(&Config{SearchMode: "local", MaxResults: 0})
	assert.Error(t, err)
}

func TestSetDefaultsCoversSearchModeDefault(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	assert.Equal(t, "local", v.GetString("search_mode"))
}
