// Package ocr extracts text from images and PDFs with Tesseract.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes the text in one encoded image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Config holds OCR settings
type Config struct {
	Languages   []string
	PSM         int
	DPI         int
	PopplerPath string
}

// DefaultConfig returns Korean plus English, single block mode at 300 dpi
func DefaultConfig() *Config {
	return &Config{
		Languages: []string{"kor", "eng"},
		PSM:       int(gosseract.PSM_SINGLE_BLOCK),
		DPI:       300,
	}
}

// ParseLanguages accepts "kor+eng" or "kor,eng"
func ParseLanguages(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
}

// TesseractEngine runs gosseract with a fresh client per image
type TesseractEngine struct {
	languages     []string
	psm           gosseract.PageSegMode
	dpi           int
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine creates an engine from config
func NewTesseractEngine(config *Config) *TesseractEngine {
	if config == nil {
		config = DefaultConfig()
	}
	langs := config.Languages
	if len(langs) == 0 {
		langs = DefaultConfig().Languages
	}
	return &TesseractEngine{
		languages:     langs,
		psm:           gosseract.PageSegMode(config.PSM),
		dpi:           config.DPI,
		clientFactory: gosseract.NewClient,
	}
}

// Name returns "tesseract"
func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize implements Engine
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(e.psm); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if e.dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.dpi)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
