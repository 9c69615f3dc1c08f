package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gifsmith/gifsmith/internal/job"
	"github.com/gifsmith/gifsmith/internal/transcoder"
)

// mockService implements ConvertService for testing.
type mockService struct {
	mock.Mock
}

func (m *mockService) Convert(ctx context.Context, jan *job.Janitor, in job.ConvertInput) (*job.ConvertOutput, error) {
	args := m.Called(ctx, jan, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.ConvertOutput), args.Error(1)
}

func (m *mockService) Probe(ctx context.Context, jan *job.Janitor, filename string, sizeBytes int64, data io.Reader) (*job.ProbeOutput, error) {
	args := m.Called(ctx, jan, filename, sizeBytes, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.ProbeOutput), args.Error(1)
}

func (m *mockService) Deliver(ctx context.Context, out *job.ConvertOutput) (string, error) {
	args := m.Called(ctx, out)
	return args.String(0), args.Error(1)
}

// mockInfo implements TranscoderInfo for testing.
type mockInfo struct {
	mock.Mock
}

func (m *mockInfo) Version(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockInfo) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// multipartBody builds a multipart form with an optional video part plus
// extra form fields.
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if filename != "" {
		part, err := w.CreateFormFile("video", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func postMultipart(t *testing.T, h http.Handler, target, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, filename, content, fields)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestConvertGIFMissingFile(t *testing.T) {
	svc := &mockService{}
	h := NewHandlers(svc, &mockInfo{}, testLogger())

	rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "", nil, map[string]string{"fps": "12"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No video file uploaded", decodeError(t, rec).Error)
	svc.AssertNotCalled(t, "Convert")
}

func TestConvertGIFUnsupportedExtension(t *testing.T) {
	svc := &mockService{}
	h := NewHandlers(svc, &mockInfo{}, testLogger())

	rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "notes.txt", []byte("hello"), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported video format", decodeError(t, rec).Error)
	svc.AssertNotCalled(t, "Convert")
}

func TestConvertGIFSuccessStreamsAttachment(t *testing.T) {
	gifBytes := []byte("GIF89a-fake-gif-payload")
	outPath := filepath.Join(t.TempDir(), "out.gif")
	require.NoError(t, os.WriteFile(outPath, gifBytes, 0o600))

	svc := &mockService{}
	svc.On("Convert", mock.Anything, mock.Anything, mock.Anything).
		Return(&job.ConvertOutput{
			Token:      "1701432000-a1b2c3d4",
			OutputPath: outPath,
			SizeBytes:  int64(len(gifBytes)),
		}, nil).
		Once()

	h := NewHandlers(svc, &mockInfo{}, testLogger())
	rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "clip.mp4", []byte("input"), map[string]string{
		"fps": "12", "scale": "320",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="converted-1701432000-a1b2c3d4.gif"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "23", rec.Header().Get("Content-Length"))
	assert.Equal(t, gifBytes, rec.Body.Bytes())
	svc.AssertExpectations(t)
}

func TestConvertGIFNormalizesUnparseableParams(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.gif")
	require.NoError(t, os.WriteFile(outPath, []byte("GIF89a"), 0o600))

	svc := &mockService{}
	svc.On("Convert", mock.Anything, mock.Anything, mock.MatchedBy(func(in job.ConvertInput) bool {
		return in.Params.FPS == 15 && in.Params.ScaleWidth == 480
	})).
		Return(&job.ConvertOutput{Token: "t", OutputPath: outPath, SizeBytes: 6}, nil).
		Once()

	h := NewHandlers(svc, &mockInfo{}, testLogger())
	rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "clip.mp4", []byte("input"), map[string]string{
		"fps": "abc", "scale": "not-a-number",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestConvertGIFTimeout(t *testing.T) {
	svc := &mockService{}
	svc.On("Convert", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, transcoder.ErrTimeout).
		Once()

	h := NewHandlers(svc, &mockInfo{}, testLogger())
	rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "clip.mp4", []byte("input"), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Conversion timed out", decodeError(t, rec).Error)
}

func TestConvertGIFProcessFailureDetails(t *testing.T) {
	procErr := &transcoder.ProcessError{
		Stderr: "Invalid data found when processing input",
		Reason: transcoder.ReasonInvalidInput,
		Err:    errors.New("exit status 1"),
	}

	t.Run("development includes diagnostic details", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Convert", mock.Anything, mock.Anything, mock.Anything).Return(nil, procErr).Once()

		h := NewHandlers(svc, &mockInfo{}, testLogger())
		rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "clip.mp4", []byte("x"), nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "Invalid or corrupted video file", resp.Error)
		assert.Contains(t, resp.Details, "Invalid data found")
	})

	t.Run("production strips diagnostic details", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Convert", mock.Anything, mock.Anything, mock.Anything).Return(nil, procErr).Once()

		h := NewHandlers(svc, &mockInfo{}, testLogger(), WithProductionMode(true))
		rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "clip.mp4", []byte("x"), nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "Invalid or corrupted video file", resp.Error)
		assert.Empty(t, resp.Details)
	})
}

func TestConvertGIFOutputMissing(t *testing.T) {
	svc := &mockService{}
	svc.On("Convert", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, transcoder.ErrOutputMissing).
		Once()

	h := NewHandlers(svc, &mockInfo{}, testLogger())
	rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "clip.mp4", []byte("x"), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Conversion produced no output", decodeError(t, rec).Error)
}

func TestConvertGIFURLDelivery(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.gif")
	require.NoError(t, os.WriteFile(outPath, []byte("GIF89a"), 0o600))
	out := &job.ConvertOutput{Token: "t", OutputPath: outPath, SizeBytes: 6}

	t.Run("not configured", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Convert", mock.Anything, mock.Anything, mock.Anything).Return(out, nil).Once()

		h := NewHandlers(svc, &mockInfo{}, testLogger())
		rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "clip.mp4", []byte("x"), map[string]string{"delivery": "url"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "URL delivery is not configured", decodeError(t, rec).Error)
	})

	t.Run("configured", func(t *testing.T) {
		svc := &mockService{}
		svc.On("Convert", mock.Anything, mock.Anything, mock.Anything).Return(out, nil).Once()
		svc.On("Deliver", mock.Anything, out).
			Return("https://bucket.s3.eu-west-1.amazonaws.com/gifs/converted-t.gif", nil).
			Once()

		h := NewHandlers(svc, &mockInfo{}, testLogger(), WithS3Delivery(true))
		rec := postMultipart(t, http.HandlerFunc(h.ConvertGIF), "/gif", "clip.mp4", []byte("x"), map[string]string{"delivery": "url"})

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp DeliveryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.URL, "converted-t.gif")
		assert.Equal(t, int64(6), resp.FileSize)
		svc.AssertExpectations(t)
	})
}

func TestVideoInfo(t *testing.T) {
	width, height := 1280, 720
	fps := 29.97
	bitrate := 1205

	svc := &mockService{}
	svc.On("Probe", mock.Anything, mock.Anything, "clip.mp4", mock.Anything, mock.Anything).
		Return(&job.ProbeOutput{
			Filename:  "clip.mp4",
			SizeBytes: 5,
			Metadata: transcoder.VideoMetadata{
				DurationSeconds: 65.5,
				Width:           &width,
				Height:          &height,
				FPS:             &fps,
				BitrateKbps:     &bitrate,
			},
		}, nil).
		Once()

	h := NewHandlers(svc, &mockInfo{}, testLogger())
	rec := postMultipart(t, http.HandlerFunc(h.VideoInfo), "/video-info", "clip.mp4", []byte("input"), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp VideoInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 65.5, resp.Duration, 0.001)
	require.NotNil(t, resp.Width)
	assert.Equal(t, 1280, *resp.Width)
	assert.Equal(t, "clip.mp4", resp.Filename)
	assert.Equal(t, int64(5), resp.FileSize)
}

func TestVideoInfoOptionalFieldsAreNull(t *testing.T) {
	svc := &mockService{}
	svc.On("Probe", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&job.ProbeOutput{
			Filename:  "clip.mp4",
			SizeBytes: 5,
			Metadata:  transcoder.VideoMetadata{DurationSeconds: 10},
		}, nil).
		Once()

	h := NewHandlers(svc, &mockInfo{}, testLogger())
	rec := postMultipart(t, http.HandlerFunc(h.VideoInfo), "/video-info", "clip.mp4", []byte("input"), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Nil(t, raw["width"])
	assert.Nil(t, raw["height"])
	assert.Nil(t, raw["fps"])
	assert.Nil(t, raw["bitrate"])
}

func TestVideoInfoNoDuration(t *testing.T) {
	svc := &mockService{}
	svc.On("Probe", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, transcoder.ErrNoDuration).
		Once()

	h := NewHandlers(svc, &mockInfo{}, testLogger())
	rec := postMultipart(t, http.HandlerFunc(h.VideoInfo), "/video-info", "clip.mp4", []byte("input"), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Could not read video metadata", decodeError(t, rec).Error)
}

func TestHealth(t *testing.T) {
	info := &mockInfo{}
	info.On("Available", mock.Anything).Return(true).Once()

	h := NewHandlers(&mockService{}, info, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.True(t, resp.TranscoderAvailable)
	assert.NotEmpty(t, resp.Timestamp)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, 0.0)
}

func TestTestTranscoder(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		info := &mockInfo{}
		info.On("Version", mock.Anything).Return("6.1.1", nil).Once()

		h := NewHandlers(&mockService{}, info, testLogger())
		req := httptest.NewRequest(http.MethodGet, "/test-transcoder", nil)
		rec := httptest.NewRecorder()
		h.TestTranscoder(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp TranscoderTestResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "OK", resp.Status)
		assert.Equal(t, "6.1.1", resp.Version)
	})

	t.Run("unavailable", func(t *testing.T) {
		info := &mockInfo{}
		info.On("Version", mock.Anything).Return("", errors.New("exec: not found")).Once()

		h := NewHandlers(&mockService{}, info, testLogger())
		req := httptest.NewRequest(http.MethodGet, "/test-transcoder", nil)
		rec := httptest.NewRecorder()
		h.TestTranscoder(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Transcoder is not available", decodeError(t, rec).Error)
	})
}
