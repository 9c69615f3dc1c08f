package job

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// Janitor tracks the temp paths created for one job and deletes them
// exactly once. Success, failure, timeout and stream-error handling all
// funnel into a single deferred Release call, so the exactly-once
// guarantee is structural rather than something every branch must
// remember.
type Janitor struct {
	logger *slog.Logger

	mu       sync.Mutex
	paths    []string
	released bool
}

// NewJanitor creates a Janitor tracking the given paths.
func NewJanitor(logger *slog.Logger, paths ...string) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{logger: logger, paths: paths}
}

// Track registers another path for cleanup. Tracking after Release
// deletes the path immediately so nothing leaks when registration races a
// concurrent release.
func (j *Janitor) Track(path string) {
	j.mu.Lock()
	if j.released {
		j.mu.Unlock()
		j.remove(path)
		return
	}
	j.paths = append(j.paths, path)
	j.mu.Unlock()
}

// Release deletes every tracked path. It is idempotent and safe to call
// concurrently: each path gets at most one deletion attempt, already-gone
// files are not an error, and deletion failures are logged, never
// propagated.
func (j *Janitor) Release() {
	j.mu.Lock()
	if j.released {
		j.mu.Unlock()
		return
	}
	j.released = true
	paths := j.paths
	j.paths = nil
	j.mu.Unlock()

	for _, p := range paths {
		j.remove(p)
	}
}

func (j *Janitor) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		j.logger.Warn("failed to remove temp file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
