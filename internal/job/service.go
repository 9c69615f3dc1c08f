package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gifsmith/gifsmith/internal/gif"
	"github.com/gifsmith/gifsmith/internal/metrics"
	"github.com/gifsmith/gifsmith/internal/storage"
	"github.com/gifsmith/gifsmith/internal/transcoder"
)

// Runner is the subset of the transcoder the service depends on.
type Runner interface {
	Convert(ctx context.Context, args []string, outputPath string) (transcoder.Result, error)
	Probe(ctx context.Context, inputPath string) (string, error)
}

// ConvertInput carries one validated upload plus its normalized parameters.
type ConvertInput struct {
	// Filename is the client-supplied upload name (already allow-listed).
	Filename string
	// SizeBytes is the upload size as reported by the multipart decoder.
	SizeBytes int64
	// Data is the upload content, not yet persisted.
	Data io.Reader
	// Params is the normalized parameter set.
	Params gif.ConversionParams
}

// ConvertOutput describes a finished conversion whose output file is still
// on disk, awaiting streaming. The caller's deferred Janitor.Release
// removes it afterwards.
type ConvertOutput struct {
	Token      string
	OutputPath string
	SizeBytes  int64
}

// ProbeOutput is the parsed metadata for one upload.
type ProbeOutput struct {
	Filename  string
	SizeBytes int64
	Metadata  transcoder.VideoMetadata
}

// Service runs conversion and probe jobs synchronously within a request.
type Service struct {
	store          storage.Storage
	runner         Runner
	logger         *slog.Logger
	convertTimeout time.Duration
	probeTimeout   time.Duration
}

// NewService creates a Service. Zero timeouts fall back to the defaults
// (120s conversion, 30s probe).
func NewService(store storage.Storage, runner Runner, logger *slog.Logger, convertTimeout, probeTimeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if convertTimeout <= 0 {
		convertTimeout = 120 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 30 * time.Second
	}
	return &Service{
		store:          store,
		runner:         runner,
		logger:         logger,
		convertTimeout: convertTimeout,
		probeTimeout:   probeTimeout,
	}
}

// Convert persists the upload, runs the transcoder under the conversion
// deadline and verifies the output. Every temp path it creates is tracked
// on jan before use, so the caller's single deferred Release covers all
// exit paths including this function's own failures.
func (s *Service) Convert(ctx context.Context, jan *Janitor, in ConvertInput) (*ConvertOutput, error) {
	token := NewToken()

	inputPath, err := s.store.SaveTemp(ctx, "gifjob-upload-"+token, in.Data)
	if err != nil {
		return nil, fmt.Errorf("persist upload: %w", err)
	}
	jan.Track(inputPath)

	outputPath := s.store.TempPath("gifjob-output-" + token + ".gif")
	jan.Track(outputPath)

	s.logger.Info("starting conversion",
		slog.String("token", token),
		slog.String("filename", in.Filename),
		slog.Int64("size_bytes", in.SizeBytes),
		slog.Int("fps", in.Params.FPS),
		slog.Int("scale", in.Params.ScaleWidth),
		slog.Float64("start_offset", in.Params.StartOffsetSeconds),
		slog.Float64("duration", in.Params.DurationSeconds),
	)

	runCtx, cancel := context.WithTimeout(ctx, s.convertTimeout)
	defer cancel()

	start := time.Now()
	args := gif.ConvertArgs(inputPath, outputPath, in.Params)
	res, err := s.runner.Convert(runCtx, args, outputPath)
	metrics.ObserveConversion(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("conversion finished",
		slog.String("token", token),
		slog.Int64("output_bytes", res.SizeBytes),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &ConvertOutput{
		Token:      token,
		OutputPath: res.OutputPath,
		SizeBytes:  res.SizeBytes,
	}, nil
}

// Probe persists the upload, runs the fixed metadata invocation under the
// probe deadline and parses its diagnostic output.
func (s *Service) Probe(ctx context.Context, jan *Janitor, filename string, sizeBytes int64, data io.Reader) (*ProbeOutput, error) {
	token := NewToken()

	inputPath, err := s.store.SaveTemp(ctx, "gifjob-probe-"+token, data)
	if err != nil {
		return nil, fmt.Errorf("persist upload: %w", err)
	}
	jan.Track(inputPath)

	runCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	diagnostic, err := s.runner.Probe(runCtx, inputPath)
	if err != nil {
		return nil, err
	}

	meta, err := transcoder.ParseMetadata(diagnostic)
	if err != nil {
		return nil, err
	}

	return &ProbeOutput{
		Filename:  filename,
		SizeBytes: sizeBytes,
		Metadata:  meta,
	}, nil
}

// Deliver uploads a finished GIF to the configured object store and
// returns its URL. It fails with storage.ErrS3NotConfigured when no bucket
// is set up.
func (s *Service) Deliver(ctx context.Context, out *ConvertOutput) (string, error) {
	f, err := s.store.LoadTemp(ctx, out.OutputPath)
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := "gifs/converted-" + out.Token + ".gif"
	url, err := s.store.UploadToS3(ctx, key, f)
	if err != nil {
		return "", err
	}

	s.logger.Info("gif delivered to object storage",
		slog.String("token", out.Token),
		slog.String("url", url),
	)
	return url, nil
}
