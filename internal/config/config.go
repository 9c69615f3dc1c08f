// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the application. It is loaded once at
// startup and passed explicitly into the components that need it.
type Config struct {
	// Server settings
	Port int    `env:"PORT, default=8080" json:"port"`
	Env  string `env:"APP_ENV, default=development" json:"env"` // "development" or "production"

	// Transcoder settings
	FFmpegPath     string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	ConvertTimeout time.Duration `env:"CONVERT_TIMEOUT, default=120s" json:"convert_timeout"`
	ProbeTimeout   time.Duration `env:"PROBE_TIMEOUT, default=30s" json:"probe_timeout"`

	// Upload settings
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES, default=10485760" json:"max_upload_bytes"` // 10MB

	// Storage settings
	TempDir     string        `env:"TEMP_DIR" json:"temp_dir"`
	SweepEvery  time.Duration `env:"SWEEP_EVERY, default=10m" json:"sweep_every"`
	SweepMaxAge time.Duration `env:"SWEEP_MAX_AGE, default=1h" json:"sweep_max_age"`

	// Optional S3 delivery settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// IsProduction reports whether the service runs in production mode.
// Outside production, error responses may include raw diagnostic details.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// S3Enabled returns true if S3 delivery configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, Env: %s, FFmpegPath: %s, ConvertTimeout: %s, ProbeTimeout: %s, MaxUploadBytes: %d, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.Env,
		c.FFmpegPath,
		c.ConvertTimeout,
		c.ProbeTimeout,
		c.MaxUploadBytes,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
