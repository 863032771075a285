// Package ingest orchestrates the end-to-end dataflow: decode -> extract
// -> vectorize -> persist -> index for writes, and vectorize -> index
// search -> score -> (optional) catalog fan-out for queries. It is the
// glue package SPEC_FULL §2 adds around the five core components,
// grounded on the teacher's Worker (job scheduling) and SimilarityEngine
// (query-time scoring) working together.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soundprint/soundprint/internal/catalog"
	"github.com/soundprint/soundprint/internal/decoder"
	"github.com/soundprint/soundprint/internal/errs"
	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/index"
	"github.com/soundprint/soundprint/internal/progress"
	"github.com/soundprint/soundprint/internal/scorer"
	"github.com/soundprint/soundprint/internal/store"
	"github.com/soundprint/soundprint/internal/tags"
	"github.com/soundprint/soundprint/internal/vectorizer"
)

// SearchMode selects where Query looks for matches.
type SearchMode string

const (
	SearchLocal  SearchMode = "local"
	SearchOnline SearchMode = "online"
	SearchHybrid SearchMode = "hybrid"
)

// Config bundles the query-affecting settings from spec.md §6's
// configuration table that the Engine itself (not just extraction) reads.
type Config struct {
	MaxResults   int
	Threshold    float64
	SearchMode   SearchMode
	RebuildEvery int
}

// Engine wires every core component together behind Ingest/Query.
type Engine struct {
	decoder   *decoder.Decoder
	extractor *fingerprint.Extractor
	store     store.Store
	index     *index.Index
	scorer    *scorer.Scorer

	recommendation *catalog.RecommendationAdapter // nil if disabled
	acoustic       *catalog.AcousticAdapter        // nil if disabled

	cfg Config
	log *zap.Logger
}

// New builds an Engine. Either catalog adapter may be nil — the engine
// treats a nil adapter exactly like one that failed auth: silently
// skipped (SPEC_FULL §7).
func New(
	dec *decoder.Decoder,
	ext *fingerprint.Extractor,
	st store.Store,
	idx *index.Index,
	sc *scorer.Scorer,
	recommendation *catalog.RecommendationAdapter,
	acoustic *catalog.AcousticAdapter,
	cfg Config,
	log *zap.Logger,
) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		decoder:        dec,
		extractor:      ext,
		store:          st,
		index:          idx,
		scorer:         sc,
		recommendation: recommendation,
		acoustic:       acoustic,
		cfg:            cfg,
		log:            log,
	}
}

// IngestFile runs one file through decode -> extract -> vectorize ->
// persist -> index, emitting ordered progress events. A file whose hash
// already exists in the store is treated as a dedup no-op (§3), not
// re-decoded.
func (e *Engine) IngestFile(ctx context.Context, path string, emit progress.Emitter) (store.Track, error) {
	if emit == nil {
		emit = progress.Noop
	}

	emit.Emit(progress.Event{Path: path, Stage: progress.StageDecode})
	hash, err := fileHash(path)
	if err != nil {
		return store.Track{}, errs.New(errs.KindDecode, "ingest.IngestFile", err)
	}

	if existing, ok, err := e.store.GetByHash(ctx, hash); err != nil {
		return store.Track{}, err
	} else if ok {
		emit.Emit(progress.Event{Path: path, Stage: progress.StageDone})
		return existing, nil
	}

	samples, err := e.decoder.Decode(ctx, path)
	if err != nil {
		emit.Emit(progress.Event{Path: path, Stage: progress.StageDecode, Err: err})
		return store.Track{}, err
	}

	emit.Emit(progress.Event{Path: path, Stage: progress.StageExtract})
	fp, err := e.extractor.Extract(samples, fingerprint.SampleRate)
	if err != nil {
		// FeatureError never reaches here (Extract absorbs it into Zero()),
		// but the call signature keeps the error path alive in case an
		// embedder swaps in a stricter extractor.
		e.log.Warn("feature extraction degraded", zap.String("path", path), zap.Error(err))
		fp = fingerprint.Zero()
	}

	emit.Emit(progress.Event{Path: path, Stage: progress.StageVectorize})
	vec := vectorizer.Vectorize(fp)

	meta := tags.Read(path)

	now := currentTime()
	track := store.Track{
		ID:          uuid.NewString(),
		FilePath:    path,
		FileHash:    hash,
		Title:       meta.Title,
		Artist:      meta.Artist,
		Album:       meta.Album,
		Fingerprint: fp,
		Vector:      vec,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	emit.Emit(progress.Event{Path: path, Stage: progress.StagePersist})
	if err := e.store.Upsert(ctx, track); err != nil {
		emit.Emit(progress.Event{Path: path, Stage: progress.StagePersist, Err: err})
		return store.Track{}, err
	}

	emit.Emit(progress.Event{Path: path, Stage: progress.StageIndex})
	if err := e.index.Add(index.Entry{
		ID:     track.ID,
		Vector: vec,
		Tempo:  fp.Tempo,
		Key:    fp.Key,
		Energy: fp.Energy,
	}); err != nil {
		e.log.Error("index add failed", zap.String("path", path), zap.Error(err))
		return store.Track{}, err
	}

	emit.Emit(progress.Event{Path: path, Stage: progress.StageDone})
	return track, nil
}

// Match is one query result, whether sourced from the local index or a
// catalog adapter.
type Match struct {
	Source     string // "local" | "recommendation" | "acoustic-id"
	TrackID    string
	Title      string
	Artist     string
	Album      string
	Breakdown  scorer.Breakdown
	Similarity float64
	Rank       int
}

// Query searches for tracks similar to path's fingerprint, per e.cfg's
// SearchMode. Local and catalog searches run concurrently in hybrid mode
// (errgroup), so a slow catalog call never delays local ranking beyond
// its own results becoming available.
func (e *Engine) Query(ctx context.Context, path string) ([]Match, error) {
	samples, err := e.decoder.Decode(ctx, path)
	if err != nil {
		return nil, err
	}
	fp, err := e.extractor.Extract(samples, fingerprint.SampleRate)
	if err != nil {
		fp = fingerprint.Zero()
	}

	var local, online []Match
	g, gctx := errgroup.WithContext(ctx)

	if e.cfg.SearchMode == SearchLocal || e.cfg.SearchMode == SearchHybrid {
		g.Go(func() error {
			m, err := e.searchLocal(fp)
			if err != nil {
				return err
			}
			local = m
			return nil
		})
	}
	if e.cfg.SearchMode == SearchOnline || e.cfg.SearchMode == SearchHybrid {
		g.Go(func() error {
			online = e.searchCatalog(gctx, fp)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := append(local, online...)
	return results, nil
}

func (e *Engine) searchLocal(fp fingerprint.Fingerprint) ([]Match, error) {
	vec := vectorizer.Vectorize(fp)
	hits, err := e.index.Search(vec, e.cfg.MaxResults, e.cfg.Threshold)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		track, ok, err := e.store.GetByID(context.Background(), hit.ID)
		if err != nil {
			return nil, err
		}
		match := Match{
			Source:     "local",
			TrackID:    hit.ID,
			Similarity: hit.Similarity,
			Rank:       hit.Rank,
		}
		if ok {
			match.Title = track.Title
			match.Artist = track.Artist
			match.Album = track.Album
			match.Breakdown = e.scorer.Score(fp, track.Fingerprint)
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// searchCatalog queries the recommendation adapter when it is configured;
// the acoustic-ID adapter is not queried here. A disabled adapter (nil) is
// skipped; a failing adapter degrades to no matches rather than failing
// the whole query (CatalogError, §7).
func (e *Engine) searchCatalog(ctx context.Context, fp fingerprint.Fingerprint) []Match {
	var matches []Match

	if e.recommendation != nil {
		recs, err := e.recommendation.Recommend(ctx, fp, e.cfg.MaxResults)
		if err != nil {
			e.log.Warn("recommendation adapter degraded to empty", zap.Error(err))
		} else {
			for i, r := range recs {
				matches = append(matches, Match{
					Source:     r.Source,
					Title:      r.Title,
					Artist:     r.Artist,
					Album:      r.Album,
					Similarity: r.Similarity,
					Rank:       i + 1,
				})
			}
		}
	}

	return matches
}

// fileHash mirrors the teacher's computeFileHash: sha256 over the size and a
// bounded prefix/suffix of the file contents, cheap enough to run on every
// ingest call for dedup without reading the whole file. The path is
// deliberately excluded so a file moved or renamed to a new path still
// dedups against its original ingest.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	fmt.Fprintf(h, "%d", info.Size())

	const sampleSize = 64 * 1024
	buf := make([]byte, sampleSize)
	n, _ := io.ReadFull(f, buf)
	h.Write(buf[:n])

	if info.Size() > sampleSize {
		if _, err := f.Seek(-sampleSize, io.SeekEnd); err == nil {
			n, _ := io.ReadFull(f, buf)
			h.Write(buf[:n])
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func currentTime() time.Time { return time.Now() }
