package ocr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

// ErrNoText is returned when OCR produced only whitespace
var ErrNoText = errors.New("no text could be extracted")

// AllowedExtensions are the upload types the extractor accepts
var AllowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true,
	"bmp": true, "tiff": true, "pdf": true,
}

// Extension returns the lower-case extension of name without the dot
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Allowed reports whether name has an accepted extension
func Allowed(name string) bool {
	return AllowedExtensions[Extension(name)]
}

// PageSeparator is written before the text of each PDF page
func PageSeparator(n int) string {
	return fmt.Sprintf("\n--- Page %d ---\n", n)
}

// Extractor combines an Engine with a Rasterizer for PDFs
type Extractor struct {
	Engine     Engine
	Rasterizer Rasterizer
}

// NewExtractor wires the tesseract engine and pdftoppm from config
func NewExtractor(config *Config) *Extractor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Extractor{
		Engine:     NewTesseractEngine(config),
		Rasterizer: NewPdftoppm(config.DPI, config.PopplerPath),
	}
}

// ExtractImage recognizes a single image
func (x *Extractor) ExtractImage(ctx context.Context, image []byte) (string, error) {
	text, err := x.Engine.Recognize(ctx, image)
	if err != nil {
		return "", apperr.E("ocr.image", apperr.KindInternal, fmt.Errorf("image processing failed: %w", err))
	}
	return text, nil
}

// ExtractPDF rasterizes pdf and recognizes every page
func (x *Extractor) ExtractPDF(ctx context.Context, pdf []byte) (string, error) {
	const op = "ocr.pdf"
	if x.Rasterizer == nil {
		return "", apperr.E(op, apperr.KindInternal, fmt.Errorf("no PDF rasterizer configured"))
	}

	pages, err := x.Rasterizer.Pages(ctx, pdf)
	if err != nil {
		return "", apperr.E(op, apperr.KindInternal, fmt.Errorf("PDF processing failed: %w", err))
	}

	var b strings.Builder
	for i, page := range pages {
		text, err := x.Engine.Recognize(ctx, page)
		if err != nil {
			return "", apperr.E(op, apperr.KindInternal, fmt.Errorf("PDF page %d failed: %w", i+1, err))
		}
		b.WriteString(PageSeparator(i + 1))
		b.WriteString(text)
		b.WriteString("\n")
	}

	logger.L().Debug("ocr.pdf.done", "pages", len(pages), "chars", b.Len())
	return b.String(), nil
}

// Extract dispatches on the extension of name. Text that is blank after
// extraction is reported as an invalid input.
func (x *Extractor) Extract(ctx context.Context, name string, data []byte) (string, error) {
	const op = "ocr.extract"
	if !Allowed(name) {
		return "", apperr.E(op, apperr.KindUnsupported,
			fmt.Errorf("unsupported file type (png, jpg, jpeg, gif, bmp, tiff, pdf only)"))
	}

	var text string
	var err error
	if Extension(name) == "pdf" {
		text, err = x.ExtractPDF(ctx, data)
	} else {
		text, err = x.ExtractImage(ctx, data)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", apperr.E(op, apperr.KindInvalid, ErrNoText)
	}
	return text, nil
}
