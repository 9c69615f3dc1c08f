package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrS3NotConfigured is returned when object-store delivery is requested
// but no S3 configuration was provided.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalStorage implements Storage on local disk. All temp files for jobs
// live under a single managed directory so the sweeper knows what it owns.
type LocalStorage struct {
	tempDir string
}

// NewLocalStorage creates a LocalStorage rooted at tempDir, creating the
// directory if needed. An empty tempDir defaults to a "gifsmith" directory
// under the OS temp dir.
func NewLocalStorage(tempDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "gifsmith")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir}, nil
}

// TempDir returns the managed temp directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// TempPath returns the path for a named artifact inside the managed
// directory. The name should already carry the per-job token.
func (s *LocalStorage) TempPath(name string) string {
	return filepath.Join(s.tempDir, name)
}

// SaveTemp writes data to a new temp file and returns its path. The name
// is used as the filename base with a unique suffix.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.tempDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// LoadTemp opens a temp file for reading.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}

	return f, nil
}

// CleanupTemp removes the specified temp files. It continues cleanup even
// if some files fail to delete, returning the first error encountered.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// SweepStale removes files in the managed directory whose modification
// time is older than maxAge. In-flight jobs are safe as long as maxAge
// comfortably exceeds the conversion deadline.
func (s *LocalStorage) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return 0, fmt.Errorf("read temp directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return removed, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.tempDir, entry.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
