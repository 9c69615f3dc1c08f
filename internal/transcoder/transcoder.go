// Package transcoder supervises the external ffmpeg executable: it runs
// one invocation per job under a hard deadline, classifies failures from
// the diagnostic stderr text, verifies the produced output, and parses
// stream metadata out of probe output.
package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/gifsmith/gifsmith/internal/gif"
)

// Static errors for job outcomes.
var (
	// ErrTimeout is returned when the subprocess was terminated because
	// its deadline expired. A timed-out run is never a ProcessError.
	ErrTimeout = errors.New("transcoder: deadline exceeded, process terminated")
	// ErrOutputMissing is returned when the process exited cleanly but the
	// declared output file does not exist.
	ErrOutputMissing = errors.New("transcoder: output file was not created")
	// ErrOutputEmpty is returned when the output file exists but is empty.
	ErrOutputEmpty = errors.New("transcoder: output file is empty")
)

// Result describes a successful conversion.
type Result struct {
	// OutputPath is the path of the produced file.
	OutputPath string
	// SizeBytes is the size of the produced file.
	SizeBytes int64
}

// Transcoder runs the external ffmpeg binary.
type Transcoder struct {
	// binPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	binPath string
	logger  *slog.Logger
}

// New creates a Transcoder. If binPath is empty it defaults to "ffmpeg"
// (resolved via PATH).
func New(binPath string, logger *slog.Logger) *Transcoder {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcoder{binPath: binPath, logger: logger}
}

// Convert runs ffmpeg with the given argument list and verifies that
// outputPath was produced and is non-empty. The caller bounds the run via
// ctx; on deadline expiry the process is killed and ErrTimeout returned.
// A nonzero exit surfaces as *ProcessError carrying the classified stderr.
func (t *Transcoder) Convert(ctx context.Context, args []string, outputPath string) (Result, error) {
	t.logger.Debug("running transcoder",
		slog.String("command", gif.CommandString(t.binPath, args)),
	)

	// #nosec G204 - binPath comes from configuration and args are built
	// from an argv slice, never interpreted by a shell.
	cmd := exec.CommandContext(ctx, t.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, ErrTimeout
		}
		return Result{}, &ProcessError{
			Args:   args,
			Stderr: stderr.String(),
			Reason: Classify(stderr.String()),
			Err:    err,
		}
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return Result{}, ErrOutputMissing
	}
	if info.Size() == 0 {
		return Result{}, ErrOutputEmpty
	}

	return Result{OutputPath: outputPath, SizeBytes: info.Size()}, nil
}

// Probe runs the fixed metadata invocation (`ffmpeg -i <path>`) and
// returns the diagnostic stderr text. ffmpeg exits nonzero when given no
// output file, so a nonzero exit here is expected and not an error; only
// a deadline expiry or a failure to start the binary is.
func (t *Transcoder) Probe(ctx context.Context, inputPath string) (string, error) {
	args := gif.ProbeArgs(inputPath)

	// #nosec G204 - see Convert.
	cmd := exec.CommandContext(ctx, t.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("start probe: %w", err)
		}
	}

	return stderr.String(), nil
}

// ProcessError is a transcoder run that exited with a failure. It carries
// the full diagnostic text plus a heuristic classification of it.
type ProcessError struct {
	Args   []string
	Stderr string
	Reason FailureReason
	Err    error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("transcoder failed (%s): %v", e.Reason, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
