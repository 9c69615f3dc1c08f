package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gifsmith/gifsmith/internal/gif"
	"github.com/gifsmith/gifsmith/internal/job"
	"github.com/gifsmith/gifsmith/internal/transcoder"
)

// maxMultipartMemory bounds how much of a parsed form is held in memory;
// larger parts spill to disk.
const maxMultipartMemory = 4 << 20

// ConvertService is the job-layer surface the handlers depend on.
type ConvertService interface {
	Convert(ctx context.Context, jan *job.Janitor, in job.ConvertInput) (*job.ConvertOutput, error)
	Probe(ctx context.Context, jan *job.Janitor, filename string, sizeBytes int64, data io.Reader) (*job.ProbeOutput, error)
	Deliver(ctx context.Context, out *job.ConvertOutput) (string, error)
}

// TranscoderInfo exposes the executable checks behind the health and
// self-test endpoints.
type TranscoderInfo interface {
	Version(ctx context.Context) (string, error)
	Available(ctx context.Context) bool
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service    ConvertService
	info       TranscoderInfo
	validator  *validator.Validate
	logger     *slog.Logger
	production bool
	s3Enabled  bool
	startedAt  time.Time
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithProductionMode controls whether raw diagnostic details are included
// in error responses. In production they never are.
func WithProductionMode(production bool) HandlerOption {
	return func(h *Handlers) {
		h.production = production
	}
}

// WithS3Delivery enables the delivery=url form option on POST /gif.
func WithS3Delivery(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.s3Enabled = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service ConvertService, info TranscoderInfo, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:   service,
		info:      info,
		validator: validator.New(),
		logger:    logger,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ConvertGIF handles POST /gif: multipart field "video" plus optional
// numeric form fields fps, scale, startTime and duration. On success the
// GIF is streamed back (or uploaded to S3 with delivery=url); the single
// deferred janitor release removes every temp file after the stream
// finishes or on any earlier exit.
func (h *Handlers) ConvertGIF(w http.ResponseWriter, r *http.Request) {
	upload, meta, ok := h.acceptUpload(w, r)
	if !ok {
		return
	}
	defer func() { _ = upload.Close() }()

	params := gif.NormalizeParams(gif.RawParams{
		FPS:         r.FormValue("fps"),
		ScaleWidth:  r.FormValue("scale"),
		StartOffset: r.FormValue("startTime"),
		Duration:    r.FormValue("duration"),
	})

	jan := job.NewJanitor(h.logger)
	defer jan.Release()

	out, err := h.service.Convert(r.Context(), jan, job.ConvertInput{
		Filename:  meta.Filename,
		SizeBytes: meta.SizeBytes,
		Data:      upload,
		Params:    params,
	})
	if err != nil {
		h.writeJobError(w, err)
		return
	}

	if r.FormValue("delivery") == "url" {
		h.deliverGIF(w, r, out)
		return
	}

	h.streamGIF(w, out)
}

// VideoInfo handles POST /video-info: probes the upload and returns its
// parsed metadata.
func (h *Handlers) VideoInfo(w http.ResponseWriter, r *http.Request) {
	upload, meta, ok := h.acceptUpload(w, r)
	if !ok {
		return
	}
	defer func() { _ = upload.Close() }()

	jan := job.NewJanitor(h.logger)
	defer jan.Release()

	out, err := h.service.Probe(r.Context(), jan, meta.Filename, meta.SizeBytes, upload)
	if err != nil {
		h.writeJobError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VideoInfoResponse{
		Duration: out.Metadata.DurationSeconds,
		Width:    out.Metadata.Width,
		Height:   out.Metadata.Height,
		FPS:      out.Metadata.FPS,
		Bitrate:  out.Metadata.BitrateKbps,
		Filename: out.Filename,
		FileSize: out.SizeBytes,
	})
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:              "OK",
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		TranscoderAvailable: h.info.Available(r.Context()),
		UptimeSeconds:       time.Since(h.startedAt).Seconds(),
	})
}

// TestTranscoder handles GET /test-transcoder requests.
func (h *Handlers) TestTranscoder(w http.ResponseWriter, r *http.Request) {
	version, err := h.info.Version(r.Context())
	if err != nil {
		h.logger.Error("transcoder self-test failed",
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "Transcoder is not available", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TranscoderTestResponse{Status: "OK", Version: version})
}

// NotFound is the fallback for unregistered paths and methods.
func (h *Handlers) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Endpoint not found"})
}

// acceptUpload pulls the "video" part out of the multipart form and vets
// it. It writes the response itself on rejection, always before any temp
// file beyond the form parser's own spool or any subprocess exists.
func (h *Handlers) acceptUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, uploadMeta, bool) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if h.rejectOversized(w, err) {
			return nil, uploadMeta{}, false
		}
		h.writeError(w, http.StatusBadRequest, "No video file uploaded", err.Error())
		return nil, uploadMeta{}, false
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "No video file uploaded", err.Error())
		return nil, uploadMeta{}, false
	}

	meta := uploadMeta{Filename: header.Filename, SizeBytes: header.Size}
	if err := h.validator.Struct(meta); err != nil {
		_ = file.Close()
		h.writeError(w, http.StatusBadRequest, "No video file uploaded", err.Error())
		return nil, uploadMeta{}, false
	}

	if !gif.IsAcceptableVideoName(meta.Filename) {
		_ = file.Close()
		h.logger.Warn("rejected upload with unsupported extension",
			slog.String("filename", meta.Filename),
		)
		h.writeError(w, http.StatusBadRequest, "Unsupported video format", "")
		return nil, uploadMeta{}, false
	}

	return file, meta, true
}

// rejectOversized answers requests whose body blew the upload cap with the
// fixed plain-text message, and reports whether it did so.
func (h *Handlers) rejectOversized(w http.ResponseWriter, err error) bool {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) && !strings.Contains(err.Error(), "request body too large") {
		return false
	}
	http.Error(w, "File too large. Maximum size is 10MB.", http.StatusRequestEntityTooLarge)
	return true
}

// streamGIF sends the converted file back as an attachment. A transmission
// failure is logged only; the deferred janitor still removes the file.
func (h *Handlers) streamGIF(w http.ResponseWriter, out *job.ConvertOutput) {
	f, err := os.Open(out.OutputPath) // #nosec G304 - path was produced by the job layer
	if err != nil {
		h.logger.Error("failed to open converted output",
			slog.String("path", out.OutputPath),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "converted-"+out.Token+".gif"))
	w.Header().Set("Content-Length", strconv.FormatInt(out.SizeBytes, 10))

	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("stream to client failed",
			slog.String("token", out.Token),
			slog.String("error", err.Error()),
		)
	}
}

// deliverGIF uploads the converted file to object storage and returns its
// URL instead of the bytes.
func (h *Handlers) deliverGIF(w http.ResponseWriter, r *http.Request, out *job.ConvertOutput) {
	if !h.s3Enabled {
		h.writeError(w, http.StatusBadRequest, "URL delivery is not configured", "")
		return
	}

	url, err := h.service.Deliver(r.Context(), out)
	if err != nil {
		h.logger.Error("delivery to object storage failed",
			slog.String("token", out.Token),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "Failed to deliver converted file", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DeliveryResponse{URL: url, FileSize: out.SizeBytes})
}

// writeJobError maps a job-layer failure to a response, attaching raw
// diagnostic text only outside production.
func (h *Handlers) writeJobError(w http.ResponseWriter, err error) {
	var procErr *transcoder.ProcessError

	switch {
	case errors.Is(err, transcoder.ErrTimeout):
		h.writeError(w, http.StatusInternalServerError, "Conversion timed out", "")
	case errors.Is(err, transcoder.ErrOutputMissing), errors.Is(err, transcoder.ErrOutputEmpty):
		h.writeError(w, http.StatusInternalServerError, "Conversion produced no output", err.Error())
	case errors.Is(err, transcoder.ErrNoDuration):
		h.writeError(w, http.StatusInternalServerError, "Could not read video metadata", err.Error())
	case errors.As(err, &procErr):
		h.logger.Error("transcoder run failed",
			slog.String("reason", string(procErr.Reason)),
			slog.String("error", procErr.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, procErr.Reason.Message(), procErr.Stderr)
	default:
		h.logger.Error("conversion failed",
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "Video processing failed", err.Error())
	}
}

// writeError writes the standard error JSON, dropping details in production.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message, details string) {
	if h.production {
		details = ""
	}
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}
