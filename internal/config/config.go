// Package config loads soundprint's runtime configuration: the
// extraction/index table from spec.md §6 plus connection settings for the
// store, catalog adapters, and cache, generalized from the teacher's
// hand-rolled JSON Manager to github.com/spf13/viper's layered
// file/env/default resolution, with github.com/joho/godotenv loading a
// local .env for credentials (SPEC_FULL §6).
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully-resolved runtime configuration.
type Config struct {
	// DataDir is where the default SQLite store and any on-disk cache live.
	DataDir string

	// Analysis/index table, exactly spec.md §6.
	SampleRate   int
	HopLength    int
	NMFCC        int
	MaxResults   int
	Threshold    float64
	SearchMode   string // "local" | "online" | "hybrid"
	RebuildEvery int

	Store      StoreConfig
	Catalog    CatalogConfig
	Cache      CacheConfig
	WorkerPool WorkerPoolConfig
}

type StoreConfig struct {
	Driver string // "sqlite" | "memory"
	DSN    string
}

type CatalogConfig struct {
	RecommendationBaseURL string
	RecommendationID      string
	RecommendationSecret  string

	AcousticHost   string
	AcousticKey    string
	AcousticSecret string
}

type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type WorkerPoolConfig struct {
	MaxWorkers int
}

// Load reads configuration from (in increasing precedence): defaults, a
// config file named "soundprint.yaml" on configPaths, a ".env" file in the
// working directory, and environment variables prefixed SOUNDPRINT_.
func Load(configPaths ...string) (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	v := viper.New()
	v.SetEnvPrefix("SOUNDPRINT")
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("soundprint")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	cfg := &Config{
		DataDir:      v.GetString("data_dir"),
		SampleRate:   v.GetInt("sample_rate"),
		HopLength:    v.GetInt("hop_length"),
		NMFCC:        v.GetInt("n_mfcc"),
		MaxResults:   v.GetInt("max_results"),
		Threshold:    v.GetFloat64("threshold"),
		SearchMode:   v.GetString("search_mode"),
		RebuildEvery: v.GetInt("rebuild_every"),
		Store: StoreConfig{
			Driver: v.GetString("store.driver"),
			DSN:    v.GetString("store.dsn"),
		},
		Catalog: CatalogConfig{
			RecommendationBaseURL: v.GetString("catalog.recommendation_base_url"),
			RecommendationID:      v.GetString("catalog.recommendation_id"),
			RecommendationSecret:  v.GetString("catalog.recommendation_secret"),
			AcousticHost:          v.GetString("catalog.acoustic_host"),
			AcousticKey:           v.GetString("catalog.acoustic_key"),
			AcousticSecret:        v.GetString("catalog.acoustic_secret"),
		},
		Cache: CacheConfig{
			RedisAddr:     v.GetString("cache.redis_addr"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
			TTL:           v.GetDuration("cache.ttl"),
		},
		WorkerPool: WorkerPoolConfig{
			MaxWorkers: v.GetInt("worker_pool.max_workers"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./soundprint-data")
	v.SetDefault("sample_rate", 22050)
	v.SetDefault("hop_length", 512)
	v.SetDefault("n_mfcc", 13)
	v.SetDefault("max_results", 20)
	v.SetDefault("threshold", 0.7)
	v.SetDefault("search_mode", "local")
	v.SetDefault("rebuild_every", 100)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "./soundprint-data/soundprint.db")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("worker_pool.max_workers", 0) // 0 => min(NumCPU, 0) resolved by caller to NumCPU
}

func validate(c *Config) error {
	switch c.SearchMode {
	case "local", "online", "hybrid":
	default:
		return fmt.Errorf("config: invalid search_mode %q", c.SearchMode)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("config: threshold must be in [0,1], got %v", c.Threshold)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("config: max_results must be positive")
	}
	return nil
}
