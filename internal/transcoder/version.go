package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// versionCheckTimeout bounds the `-version` invocation used by health and
// self-test endpoints; it should return near-instantly.
const versionCheckTimeout = 5 * time.Second

// Version runs `<bin> -version` and returns the version token from the
// first output line (for "ffmpeg version 6.1.1 ..." that is "6.1.1").
func (t *Transcoder) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()

	// #nosec G204 - binPath comes from configuration.
	cmd := exec.CommandContext(ctx, t.binPath, "-version")

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s -version: %w", t.binPath, err)
	}

	line := stdout.String()
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)

	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1], nil
		}
	}
	return line, nil
}

// Available reports whether the transcoder binary can be executed.
func (t *Transcoder) Available(ctx context.Context) bool {
	_, err := t.Version(ctx)
	return err == nil
}
