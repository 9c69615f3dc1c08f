package transcoder

import "strings"

// FailureReason is a coarse classification of a failed run, derived from
// the diagnostic text.
type FailureReason string

const (
	// ReasonInvalidInput means the input could not be decoded.
	ReasonInvalidInput FailureReason = "invalid_input"
	// ReasonNotFound means a referenced file did not exist or was unreadable.
	ReasonNotFound FailureReason = "not_found"
	// ReasonPermissionDenied means the process lacked filesystem access.
	ReasonPermissionDenied FailureReason = "permission_denied"
	// ReasonGeneric is everything else.
	ReasonGeneric FailureReason = "generic"
)

// classifiers are checked in priority order; first match wins. This is a
// substring heuristic over free-form diagnostic text and can misfire if a
// matched phrase shows up in an unrelated context (say, a filename), but
// the ordering is kept stable for compatibility with callers that map
// reasons to user-facing messages.
var classifiers = []struct {
	substr string
	reason FailureReason
}{
	{"Invalid data found", ReasonInvalidInput},
	{"No such file", ReasonNotFound},
	{"Permission denied", ReasonPermissionDenied},
}

// Classify maps diagnostic stderr text to a FailureReason.
func Classify(stderr string) FailureReason {
	for _, c := range classifiers {
		if strings.Contains(stderr, c.substr) {
			return c.reason
		}
	}
	return ReasonGeneric
}

// Message returns the user-facing description for the reason.
func (r FailureReason) Message() string {
	switch r {
	case ReasonInvalidInput:
		return "Invalid or corrupted video file"
	case ReasonNotFound:
		return "Video file not found or not accessible"
	case ReasonPermissionDenied:
		return "Permission denied while accessing the video file"
	default:
		return "Video conversion failed"
	}
}
