// Package bootstrap provides dependency initialization for the GIF
// conversion API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/gifsmith/gifsmith/internal/config"
	"github.com/gifsmith/gifsmith/internal/job"
	"github.com/gifsmith/gifsmith/internal/metrics"
	"github.com/gifsmith/gifsmith/internal/storage"
	"github.com/gifsmith/gifsmith/internal/transcoder"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service    *job.Service
	Transcoder *transcoder.Transcoder
	sweeper    *cron.Cron
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	tc := transcoder.New(cfg.FFmpegPath, logger)
	svc := job.NewService(store, tc, logger, cfg.ConvertTimeout, cfg.ProbeTimeout)

	sweeper, err := initSweeper(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Service:    svc,
		Transcoder: tc,
		sweeper:    sweeper,
	}, nil
}

// StartSweeper begins the periodic stale-temp-file sweep.
func (d *Dependencies) StartSweeper() {
	d.sweeper.Start()
}

// Close stops background work and waits for in-flight sweeps.
func (d *Dependencies) Close() {
	<-d.sweeper.Stop().Done()
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 delivery configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", localStore.TempDir()),
	)
	return localStore, nil
}

// initSweeper schedules removal of temp files orphaned by crashes or kills
// between requests. Per-request cleanup is the janitor's job; this is the
// backstop.
func initSweeper(cfg *config.Config, store storage.Storage, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()

	spec := "@every " + cfg.SweepEvery.String()
	_, err := c.AddFunc(spec, func() {
		removed, err := store.SweepStale(context.Background(), cfg.SweepMaxAge)
		if err != nil {
			logger.Warn("temp sweep failed",
				slog.String("error", err.Error()),
			)
			return
		}
		if removed > 0 {
			metrics.TempFilesSwept.Add(float64(removed))
			logger.Info("swept stale temp files",
				slog.Int("removed", removed),
			)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule temp sweep: %w", err)
	}

	return c, nil
}
