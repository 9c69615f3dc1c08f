// Package storage provides temporary file storage for in-flight jobs and
// optional object-store delivery of finished GIFs. It defines the Storage
// interface plus local-disk and S3 implementations.
package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the file backend used by the job layer. Temp files live only
// for the duration of a request; the sweeper exists to reclaim anything
// orphaned by a crash.
type Storage interface {
	// SaveTemp persists data to a temp file named after the given prefix
	// and returns its path.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp opens a previously saved temp file for reading.
	// The caller closes the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// TempPath returns the path a job should use for a derived artifact
	// with the given name, inside the managed temp directory.
	TempPath(name string) string

	// CleanupTemp removes the given temp files, continuing past
	// individual failures and returning the first error seen.
	CleanupTemp(ctx context.Context, paths []string) error

	// SweepStale removes managed temp files older than maxAge and
	// reports how many were deleted.
	SweepStale(ctx context.Context, maxAge time.Duration) (int, error)

	// UploadToS3 uploads data under the given key and returns a public
	// URL, or ErrS3NotConfigured when no object store is set up.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
