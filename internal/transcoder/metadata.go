package transcoder

import (
	"errors"
	"regexp"
	"strconv"
)

// ErrNoDuration is returned when the diagnostic text carries no Duration
// line. Without it the probe produced no usable output.
var ErrNoDuration = errors.New("transcoder: no duration found in probe output")

// VideoMetadata is the structured view of a probe's diagnostic text.
// Every field except the duration is matched by an independent pattern
// and may be absent.
type VideoMetadata struct {
	DurationSeconds float64
	Width           *int
	Height          *int
	FPS             *float64
	BitrateKbps     *int
}

var (
	durationRe   = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2})\.(\d{2})`)
	dimensionsRe = regexp.MustCompile(`(\d{2,5})x(\d{2,5})`)
	frameRateRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*fps`)
	bitrateRe    = regexp.MustCompile(`(\d+)\s*kb/s`)
)

// ParseMetadata extracts duration, dimensions, frame rate and bitrate from
// ffmpeg's stream banner. Duration is mandatory; the other fields are nil
// when their pattern does not match.
func ParseMetadata(diagnostic string) (VideoMetadata, error) {
	m := durationRe.FindStringSubmatch(diagnostic)
	if m == nil {
		return VideoMetadata{}, ErrNoDuration
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	hundredths, _ := strconv.Atoi(m[4])

	meta := VideoMetadata{
		DurationSeconds: float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(hundredths)/100,
	}

	if d := dimensionsRe.FindStringSubmatch(diagnostic); d != nil {
		w, _ := strconv.Atoi(d[1])
		h, _ := strconv.Atoi(d[2])
		meta.Width = &w
		meta.Height = &h
	}

	if f := frameRateRe.FindStringSubmatch(diagnostic); f != nil {
		fps, err := strconv.ParseFloat(f[1], 64)
		if err == nil {
			meta.FPS = &fps
		}
	}

	if b := bitrateRe.FindStringSubmatch(diagnostic); b != nil {
		kbps, err := strconv.Atoi(b[1])
		if err == nil {
			meta.BitrateKbps = &kbps
		}
	}

	return meta, nil
}
