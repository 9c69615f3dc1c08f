// Package server provides the HTTP server for the GIF conversion API.
// It includes handlers, middleware, routes, and DTOs separated from domain
// types.
package server

// ErrorResponse is the standard error response format. Details carries raw
// diagnostic text and is only populated outside production.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// VideoInfoResponse is the HTTP response for POST /video-info. The
// nullable fields are independently optional: each is null when the probe
// output did not contain it.
type VideoInfoResponse struct {
	Duration float64  `json:"duration"`
	Width    *int     `json:"width"`
	Height   *int     `json:"height"`
	FPS      *float64 `json:"fps"`
	Bitrate  *int     `json:"bitrate"`
	Filename string   `json:"filename"`
	FileSize int64    `json:"fileSize"`
}

// HealthResponse is the HTTP response for GET /health.
type HealthResponse struct {
	Status              string  `json:"status"`
	Timestamp           string  `json:"timestamp"`
	TranscoderAvailable bool    `json:"transcoderAvailable"`
	UptimeSeconds       float64 `json:"uptimeSeconds"`
}

// TranscoderTestResponse is the HTTP response for GET /test-transcoder.
type TranscoderTestResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// DeliveryResponse is returned for POST /gif with delivery=url: the GIF
// was uploaded to object storage instead of being streamed back.
type DeliveryResponse struct {
	URL      string `json:"url"`
	FileSize int64  `json:"fileSize"`
}

// uploadMeta is what the multipart decoder hands over for validation
// before any temp file or subprocess is created.
type uploadMeta struct {
	Filename  string `validate:"required"`
	SizeBytes int64  `validate:"gt=0"`
}
