// Package job orchestrates a single conversion or probe attempt: it owns
// the per-request temp paths, runs the transcoder under a deadline, and
// guarantees exactly-once cleanup of everything it created.
package job

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewToken creates a unique per-job token used to namespace temp files and
// the download filename.
// Format: <timestamp>-<random>
// Example: 1701432000-a1b2c3d4
func NewToken() string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		// Fallback to timestamp only if crypto/rand fails
		return fmt.Sprintf("%d", timestamp)
	}
	return fmt.Sprintf("%d-%s", timestamp, hex.EncodeToString(random))
}
