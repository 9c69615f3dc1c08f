package gif

import (
	"path/filepath"
	"strings"
)

// allowedExtensions is the fixed set of accepted upload container formats.
var allowedExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mkv":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
}

// IsAcceptableVideoName reports whether the uploaded filename carries an
// allow-listed video extension (case-insensitive). It is checked before
// any subprocess is spawned or any file leaves the upload temp location.
func IsAcceptableVideoName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[ext]
	return ok
}

// QuoteArg renders a path as a single double-quoted shell word, escaping
// embedded quotes and backslashes rather than stripping them. Conversion
// itself passes an argv slice directly to the process (no shell), so this
// exists for log rendering of commands and for any environment where a
// shell-mediated invocation is unavoidable.
func QuoteArg(path string) string {
	var b strings.Builder
	b.Grow(len(path) + 2)
	b.WriteByte('"')
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}
