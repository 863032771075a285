// Package scanner walks configured library directories for audio files,
// grounded on the teacher's Scanner (scanner.go), trimmed to the file-walk
// concern the ingest pipeline actually needs: soundprint has no playback
// queue or NFO/artwork catalog, so this package only discovers candidate
// files and streams them for the caller to ingest (SPEC_FULL §1, "file
// walker" collaborator).
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SupportedExtensions are the audio file extensions the scanner recognizes.
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".wav":  true,
	".wma":  true,
	".alac": true,
	".opus": true,
}

// FileInfo is basic metadata about a discovered audio file.
type FileInfo struct {
	Path       string
	Size       int64
	ModifiedAt int64
}

// Scanner walks library paths for supported audio files. It is safe for
// concurrent Stop calls against a running Scan.
type Scanner struct {
	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc

	log *zap.Logger
}

func New(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log}
}

// Stop cancels any running scan.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// IsRunning reports whether a scan is currently in progress.
func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Scan walks paths and streams every discovered audio file's FileInfo to
// out, closing out when done or when ctx is cancelled. Only one scan may
// run at a time; a second call while one is in progress returns
// immediately with an already-running error.
func (s *Scanner) Scan(ctx context.Context, paths []string, out chan<- FileInfo) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		close(out)
		return errAlreadyRunning
	}
	s.isRunning = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.cancel = nil
		s.mu.Unlock()
		close(out)
	}()

	for _, libraryPath := range paths {
		info, err := os.Stat(libraryPath)
		if err != nil || !info.IsDir() {
			s.log.Warn("skipping unreadable library path", zap.String("path", libraryPath), zap.Error(err))
			continue
		}

		walkErr := filepath.WalkDir(libraryPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != libraryPath {
					return filepath.SkipDir
				}
				return nil
			}

			if !SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			fi, err := d.Info()
			if err != nil {
				return nil
			}

			select {
			case out <- FileInfo{Path: path, Size: fi.Size(), ModifiedAt: fi.ModTime().Unix()}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})

		if walkErr != nil {
			if walkErr == context.Canceled {
				return walkErr
			}
			s.log.Warn("scan of library path ended with an error", zap.String("path", libraryPath), zap.Error(walkErr))
		}
	}

	return nil
}

type scanError string

func (e scanError) Error() string { return string(e) }

const errAlreadyRunning = scanError("scan already in progress")
