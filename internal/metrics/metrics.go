// Package metrics defines the Prometheus collectors for the service.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gifsmith/gifsmith/internal/transcoder"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifsmith_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gifsmith_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifsmith_conversions_total",
			Help: "Total number of conversion attempts by outcome",
		},
		[]string{"outcome"},
	)

	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gifsmith_conversion_duration_seconds",
			Help:    "Wall-clock duration of transcoder runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	TempFilesSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifsmith_temp_files_swept_total",
			Help: "Stale temp files removed by the background sweeper",
		},
	)
)

// ObserveConversion records the outcome and duration of one transcoder run.
func ObserveConversion(elapsed time.Duration, err error) {
	ConversionDuration.Observe(elapsed.Seconds())
	ConversionsTotal.WithLabelValues(outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, transcoder.ErrTimeout):
		return "timeout"
	case errors.Is(err, transcoder.ErrOutputMissing):
		return "output_missing"
	case errors.Is(err, transcoder.ErrOutputEmpty):
		return "output_empty"
	default:
		return "process_failure"
	}
}
