package internal

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Version is the toolbelt release version
const Version = "0.4.0"

// NewFileID returns a random identifier suitable as a file stem
func NewFileID() string {
	return uuid.NewString()
}

// ShortID returns the first 8 hex characters of a random UUID
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// TimestampedName builds "<prefix>_<YYYYmmdd_HHMMSS><suffix>"
func TimestampedName(prefix, suffix string, now time.Time) string {
	return fmt.Sprintf("%s_%s%s", prefix, now.Format("20060102_150405"), suffix)
}

// SecureFilename strips directory components and anything outside
// [A-Za-z0-9._-] so the result is always a plain file name.
// Returns "" when nothing usable is left.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	clean := strings.Trim(b.String(), "._")
	if clean == "" || clean == "." || clean == ".." {
		return ""
	}
	return clean
}

// FileStem returns the file name without directory and extension
func FileStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
