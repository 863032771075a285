// Package store persists track metadata and fingerprints, grounded on the
// teacher's FeatureStore (analysis/db.go) and the original's SQLite
// `songs` table schema, generalized to a pluggable Store interface with a
// GORM/SQLite default implementation (SPEC_FULL §6).
package store

import (
	"context"
	"time"

	"github.com/soundprint/soundprint/internal/fingerprint"
)

// Track is one persisted, fully-analyzed audio file.
type Track struct {
	ID          string
	FilePath    string
	FileHash    string
	Title       string
	Artist      string
	Album       string
	Fingerprint fingerprint.Fingerprint
	Vector      []float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the metadata persistence boundary. Every write is a
// PersistError on failure; PersistError always propagates to the caller
// (SPEC_FULL §7), unlike the degrade-and-continue policy used for feature
// extraction.
type Store interface {
	// Upsert inserts or updates a Track, keyed by FilePath. It does not
	// dedup by FileHash: the SQLite store's unique FileHash index makes an
	// upsert of a new path with an existing hash fail, and MemoryStore
	// stores it as a second track. Dedup by file hash (§3) is done by the
	// caller through GetByHash before upserting (see ingest.IngestFile).
	Upsert(ctx context.Context, t Track) error

	GetByPath(ctx context.Context, path string) (Track, bool, error)
	GetByHash(ctx context.Context, hash string) (Track, bool, error)
	GetByID(ctx context.Context, id string) (Track, bool, error)

	// All returns every persisted track, used to rebuild the similarity
	// index from scratch.
	All(ctx context.Context) ([]Track, error)

	Count(ctx context.Context) (int, error)

	Close() error
}
