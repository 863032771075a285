package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/soundprint/soundprint/internal/errs"
	"github.com/soundprint/soundprint/internal/fingerprint"
)

// row is the GORM model backing the songs table. Fingerprint and Vector
// are stored as JSON blobs rather than normalized columns, matching the
// original's single fingerprint_data JSON column.
type row struct {
	ID              string `gorm:"primaryKey"`
	FilePath        string `gorm:"uniqueIndex"`
	FileHash        string `gorm:"uniqueIndex"`
	Title           string
	Artist          string
	Album           string
	FingerprintJSON string
	VectorJSON      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (row) TableName() string { return "songs" }

// SQLiteStore is the default Store, backed by gorm.io/driver/sqlite.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) a SQLite database at path and
// migrates the songs table.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errs.New(errs.KindPersist, "store.OpenSQLite", err)
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, errs.New(errs.KindPersist, "store.OpenSQLite", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, t Track) error {
	fpJSON, err := json.Marshal(t.Fingerprint)
	if err != nil {
		return errs.New(errs.KindPersist, "store.Upsert", err)
	}
	vecJSON, err := json.Marshal(t.Vector)
	if err != nil {
		return errs.New(errs.KindPersist, "store.Upsert", err)
	}

	now := t.UpdatedAt
	if now.IsZero() {
		now = t.CreatedAt
	}

	r := row{
		ID:              t.ID,
		FilePath:        t.FilePath,
		FileHash:        t.FileHash,
		Title:           t.Title,
		Artist:          t.Artist,
		Album:           t.Album,
		FingerprintJSON: string(fpJSON),
		VectorJSON:      string(vecJSON),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       now,
	}

	err = s.db.WithContext(ctx).
		Where("file_path = ?", t.FilePath).
		Assign(r).
		FirstOrCreate(&row{}, row{FilePath: t.FilePath}).Error
	if err != nil {
		return errs.New(errs.KindPersist, "store.Upsert", err)
	}
	return nil
}

func (s *SQLiteStore) GetByPath(ctx context.Context, path string) (Track, bool, error) {
	var r row
	err := s.db.WithContext(ctx).Where("file_path = ?", path).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Track{}, false, nil
	}
	if err != nil {
		return Track{}, false, errs.New(errs.KindPersist, "store.GetByPath", err)
	}
	t, err := rowToTrack(r)
	return t, true, err
}

func (s *SQLiteStore) GetByHash(ctx context.Context, hash string) (Track, bool, error) {
	var r row
	err := s.db.WithContext(ctx).Where("file_hash = ?", hash).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Track{}, false, nil
	}
	if err != nil {
		return Track{}, false, errs.New(errs.KindPersist, "store.GetByHash", err)
	}
	t, err := rowToTrack(r)
	return t, true, err
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (Track, bool, error) {
	var r row
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Track{}, false, nil
	}
	if err != nil {
		return Track{}, false, errs.New(errs.KindPersist, "store.GetByID", err)
	}
	t, err := rowToTrack(r)
	return t, true, err
}

func (s *SQLiteStore) All(ctx context.Context) ([]Track, error) {
	var rows []row
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errs.New(errs.KindPersist, "store.All", err)
	}
	tracks := make([]Track, 0, len(rows))
	for _, r := range rows {
		t, err := rowToTrack(r)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&row{}).Count(&count).Error; err != nil {
		return 0, errs.New(errs.KindPersist, "store.Count", err)
	}
	return int(count), nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errs.New(errs.KindPersist, "store.Close", err)
	}
	return sqlDB.Close()
}

func rowToTrack(r row) (Track, error) {
	var fp fingerprint.Fingerprint
	if err := json.Unmarshal([]byte(r.FingerprintJSON), &fp); err != nil {
		return Track{}, errs.New(errs.KindPersist, "store.rowToTrack", err)
	}
	var vec []float64
	if err := json.Unmarshal([]byte(r.VectorJSON), &vec); err != nil {
		return Track{}, errs.New(errs.KindPersist, "store.rowToTrack", err)
	}
	return Track{
		ID:          r.ID,
		FilePath:    r.FilePath,
		FileHash:    r.FileHash,
		Title:       r.Title,
		Artist:      r.Artist,
		Album:       r.Album,
		Fingerprint: fp,
		Vector:      vec,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}
