package gif

import (
	"fmt"
	"strings"
)

// ConvertArgs builds the ffmpeg argument list for one conversion job.
// The arguments are passed directly to the process (argv style) so paths
// need no shell escaping.
//
// The filter graph is a deliberate two-stage palette pipeline: the stream
// is resampled to the target frame rate, scaled to the target width with
// lanczos (height -1 preserves aspect ratio), then split so palettegen
// can compute one 256-color palette over the whole clip which paletteuse
// applies with Floyd-Steinberg error diffusion. Skipping the dedicated
// palette pass and letting the GIF encoder quantize per frame produces
// visible banding and "dot" artifacts, so the two-stage graph must stay.
func ConvertArgs(inputPath, outputPath string, p ConversionParams) []string {
	args := make([]string, 0, 12)

	// Seeking before -i is a fast input seek; only emitted when requested.
	if p.StartOffsetSeconds > 0 {
		args = append(args, "-ss", formatSeconds(p.StartOffsetSeconds))
	}

	args = append(args, "-i", inputPath)

	if p.DurationSeconds > 0 {
		args = append(args, "-t", formatSeconds(p.DurationSeconds))
	}

	filter := fmt.Sprintf(
		"fps=%d,scale=%d:-1:flags=lanczos,split[a][b];[a]palettegen=max_colors=256[p];[b][p]paletteuse=dither=floyd_steinberg",
		p.FPS, p.ScaleWidth,
	)

	args = append(args,
		"-vf", filter,
		"-y", // overwrite output without prompting
		outputPath,
	)

	return args
}

// ProbeArgs builds the fixed argument list for the metadata probe. With no
// output file ffmpeg exits nonzero, but its stderr carries the stream
// banner (duration, dimensions, fps, bitrate) that the parser mines.
func ProbeArgs(inputPath string) []string {
	return []string{"-i", inputPath}
}

// CommandString renders an executable plus argv for logs, quoting each
// argument that contains whitespace or quote characters.
func CommandString(bin string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, bin)
	for _, a := range args {
		if strings.ContainsAny(a, " \t\"\\") {
			a = QuoteArg(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%g", s)
}
