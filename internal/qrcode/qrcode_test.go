package qrcode

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

func TestGenerate(t *testing.T) {
	data, err := Generate("https://codeberg.org/snonux", 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	if img.Bounds().Dx() != DefaultSize {
		t.Errorf("expected %dpx, got %d", DefaultSize, img.Bounds().Dx())
	}
}

func TestGenerateEmpty(t *testing.T) {
	_, err := Generate(" \t", 100)
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("expected invalid kind, got %v", err)
	}
}

func TestGenerateTooLong(t *testing.T) {
	_, err := Generate(strings.Repeat("x", 5000), 100)
	if err == nil {
		t.Error("expected error for content beyond QR capacity")
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := FileName(now); got != "qrcode_20250304_050607.png" {
		t.Errorf("unexpected name %s", got)
	}
}
