// Package tags reads container metadata (title/artist/album) from audio
// files, replacing the teacher's ffprobe-JSON parsing for tag reading with
// github.com/dhowden/tag, a pure-Go container parser covering the MP3/
// FLAC/MP4/OGG formats the ingest scanner encounters (SPEC_FULL §4.1).
package tags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/soundprint/soundprint/internal/errs"
)

// Metadata is the subset of container tags the catalog and store care
// about. Title falls back to the filename when the container carries none.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Read extracts Metadata from path. A parse failure degrades to a
// filename-derived title rather than propagating, since missing tags are
// never fatal to ingest (SPEC_FULL §7).
func Read(path string) Metadata {
	f, err := os.Open(path)
	if err != nil {
		return fallback(path)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return fallback(path)
	}

	meta := Metadata{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}
	if meta.Artist == "" {
		meta.Artist = m.AlbumArtist()
	}
	if meta.Title == "" {
		meta.Title = fallback(path).Title
	}
	return meta
}

func fallback(path string) Metadata {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return Metadata{Title: strings.TrimSuffix(base, ext)}
}

// readErrorHint documents the Kind a caller wrapping Read in a stricter
// context (e.g. a validation-only CLI path) should use on failure.
var readErrorHint = errs.KindDecode
