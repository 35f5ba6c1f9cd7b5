// Package qrcode renders text as a QR code PNG.
package qrcode

import (
	"fmt"
	"strings"
	"time"

	qr "github.com/skip2/go-qrcode"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
)

// DefaultSize is the edge length of the PNG in pixels
const DefaultSize = 256

// Generate encodes text with medium error correction
func Generate(text string, size int) ([]byte, error) {
	const op = "qrcode.generate"
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Invalid(op, "please enter some text")
	}
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qr.Encode(text, qr.Medium, size)
	if err != nil {
		return nil, apperr.E(op, apperr.KindInvalid, fmt.Errorf("failed to generate QR code: %w", err))
	}
	return png, nil
}

// FileName returns "qrcode_<YYYYmmdd_HHMMSS>.png"
func FileName(now time.Time) string {
	return internal.TimestampedName("qrcode", ".png", now)
}
