// Package gif contains the conversion domain: parameter normalization,
// upload filename vetting, and construction of the ffmpeg invocation that
// turns a video clip into an animated GIF.
package gif

import (
	"math"
	"strconv"
)

// Parameter defaults and inclusive bounds.
const (
	DefaultFPS = 15
	MinFPS     = 5
	MaxFPS     = 30

	DefaultScaleWidth = 480
	MinScaleWidth     = 240
	MaxScaleWidth     = 1920
)

// RawParams holds the untrusted form values as received from the client.
// Empty strings mean the field was not supplied.
type RawParams struct {
	FPS         string
	ScaleWidth  string
	StartOffset string
	Duration    string
}

// ConversionParams is a validated, clamped parameter set for one job.
// Values are immutable once produced by NormalizeParams.
type ConversionParams struct {
	// FPS is the output frame rate, in [MinFPS, MaxFPS].
	FPS int
	// ScaleWidth is the output width in pixels; height follows the
	// source aspect ratio. In [MinScaleWidth, MaxScaleWidth].
	ScaleWidth int
	// StartOffsetSeconds is where conversion begins in the source, >= 0.
	StartOffsetSeconds float64
	// DurationSeconds bounds the converted clip; 0 means "to end".
	DurationSeconds float64
}

// NormalizeParams produces a valid ConversionParams from raw form input.
// Each field is parsed independently; unparseable or missing values fall
// back to the documented default and everything is clamped to its range.
// It never fails, whatever the input.
func NormalizeParams(raw RawParams) ConversionParams {
	return ConversionParams{
		FPS:                clampInt(parseIntOr(raw.FPS, DefaultFPS), MinFPS, MaxFPS),
		ScaleWidth:         clampInt(parseIntOr(raw.ScaleWidth, DefaultScaleWidth), MinScaleWidth, MaxScaleWidth),
		StartOffsetSeconds: clampFloatMin(parseFloatOr(raw.StartOffset, 0), 0),
		DurationSeconds:    clampFloatMin(parseFloatOr(raw.Duration, 0), 0),
	}
}

func parseIntOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseFloatOr(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func clampFloatMin(f, lo float64) float64 {
	if f < lo {
		return lo
	}
	return f
}
