package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/soundprint/soundprint/internal/cache"
	"github.com/soundprint/soundprint/internal/catalog"
	"github.com/soundprint/soundprint/internal/config"
	"github.com/soundprint/soundprint/internal/decoder"
	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/index"
	"github.com/soundprint/soundprint/internal/ingest"
	"github.com/soundprint/soundprint/internal/scorer"
	"github.com/soundprint/soundprint/internal/store"
)

// components bundles every long-lived dependency a command needs, built
// once per CLI invocation from cfg.
type components struct {
	store  store.Store
	index  *index.Index
	engine *ingest.Engine
}

// buildComponents wires the Decoder, FeatureExtractor, Store, Index,
// Scorer, and optional catalog adapters into an ingest.Engine, then
// rebuilds the index from whatever is already persisted — the Store is
// the durable source of truth; the Index is always a rebuildable view
// over it (§4.4).
func buildComponents(ctx context.Context, c *config.Config) (*components, error) {
	dec, err := decoder.New()
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	ext := fingerprint.NewExtractor(c.SampleRate, log)

	var st store.Store
	switch c.Store.Driver {
	case "memory":
		st = store.NewMemory()
	default:
		st, err = store.OpenSQLite(c.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	idx := index.New(c.RebuildEvery)
	tracks, err := st.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tracks for index rebuild: %w", err)
	}
	entries := make([]index.Entry, 0, len(tracks))
	for _, t := range tracks {
		entries = append(entries, index.Entry{
			ID:     t.ID,
			Vector: t.Vector,
			Tempo:  t.Fingerprint.Tempo,
			Key:    t.Fingerprint.Key,
			Energy: t.Fingerprint.Energy,
		})
	}
	if len(entries) > 0 {
		if err := idx.Rebuild(ctx, entries); err != nil {
			return nil, fmt.Errorf("rebuilding index: %w", err)
		}
	}

	sc := scorer.New(scorer.DefaultWeights())

	var recommendation *catalog.RecommendationAdapter
	if r, err := catalog.NewRecommendationAdapter(
		c.Catalog.RecommendationBaseURL, c.Catalog.RecommendationID, c.Catalog.RecommendationSecret,
	); err == nil {
		recommendation = r
	} else {
		log.Debug("recommendation adapter disabled", zap.Error(err))
	}

	var acoustic *catalog.AcousticAdapter
	if a, err := catalog.NewAcousticAdapter(
		c.Catalog.AcousticHost, c.Catalog.AcousticKey, c.Catalog.AcousticSecret,
	); err == nil {
		acoustic = a
	} else {
		log.Debug("acoustic-id adapter disabled", zap.Error(err))
	}

	engine := ingest.New(dec, ext, st, idx, sc, recommendation, acoustic, ingest.Config{
		MaxResults:   c.MaxResults,
		Threshold:    c.Threshold,
		SearchMode:   ingest.SearchMode(c.SearchMode),
		RebuildEvery: c.RebuildEvery,
	}, log)

	return &components{store: st, index: idx, engine: engine}, nil
}

// buildScoreCache returns a Redis-backed ScoreCache when an address is
// configured, else an in-memory fallback — the cache is best-effort by
// construction, so there is no error path here.
func buildScoreCache(c *config.Config) cache.ScoreCache {
	if c.Cache.RedisAddr == "" {
		return cache.NewMemoryCache()
	}
	return cache.NewRedisCache(c.Cache.RedisAddr, c.Cache.RedisPassword, c.Cache.RedisDB)
}
