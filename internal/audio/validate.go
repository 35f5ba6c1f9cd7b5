package audio

import (
	"strings"
	"unicode/utf8"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

const (
	// MaxEngineChars is the longest text handed to a TTS engine.
	MaxEngineChars = 5000
	// MaxRequestChars is the longest text accepted over HTTP.
	MaxRequestChars = 1000
)

// ValidateText rejects empty text and text longer than max characters.
func ValidateText(text string, max int) error {
	if strings.TrimSpace(text) == "" {
		return apperr.E("tts.validate", apperr.KindInvalid, apperr.ErrEmptyInput)
	}
	if n := utf8.RuneCountInString(text); max > 0 && n > max {
		return apperr.Invalid("tts.validate", "text too long: %d characters (max %d)", n, max)
	}
	return nil
}
