package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// MaxUploadBytes caps the request body size; 0 disables the cap.
	MaxUploadBytes int64
	// Production controls whether error details leave the process.
	Production bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 10 << 20,
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing; the bare "/"
// registration is the JSON 404 fallback for everything unmatched.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /gif", h.ConvertGIF)
	mux.HandleFunc("POST /video-info", h.VideoInfo)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /test-transcoder", h.TestTranscoder)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", h.NotFound)

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger, cfg.Production),
		LoggingMiddleware(logger),
		MetricsMiddleware(),
		CORSMiddleware(cfg.AllowedOrigins),
		MaxBytesMiddleware(cfg.MaxUploadBytes),
	)

	return chain(mux)
}
