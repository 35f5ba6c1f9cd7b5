package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
)

// Rasterizer turns a PDF into one encoded image per page, in page order.
type Rasterizer interface {
	Pages(ctx context.Context, pdf []byte) ([][]byte, error)
}

// Pdftoppm rasterizes with poppler's pdftoppm
type Pdftoppm struct {
	DPI int
	// Dir holds the poppler binaries; empty means PATH.
	Dir string
}

// NewPdftoppm creates a rasterizer. A poppler directory that does not
// exist is ignored.
func NewPdftoppm(dpi int, dir string) *Pdftoppm {
	if dpi <= 0 {
		dpi = 300
	}
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			dir = ""
		}
	}
	return &Pdftoppm{DPI: dpi, Dir: dir}
}

func (p *Pdftoppm) binary() string {
	if p.Dir == "" {
		return "pdftoppm"
	}
	return filepath.Join(p.Dir, "pdftoppm")
}

// IsAvailable checks that pdftoppm can be found
func (p *Pdftoppm) IsAvailable() error {
	if _, err := exec.LookPath(p.binary()); err != nil {
		return fmt.Errorf("pdftoppm not found. Please install poppler-utils")
	}
	return nil
}

// Pages implements Rasterizer
func (p *Pdftoppm) Pages(ctx context.Context, pdf []byte) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "toolbelt-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	in := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, p.binary(), "-r", fmt.Sprint(p.DPI), "-png", in, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w\nOutput: %s", err, string(out))
	}

	files, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sortPages(files)

	pages := make([][]byte, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %s: %w", filepath.Base(f), err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}

// sortPages orders page-1.png, page-2.png, ..., page-10.png numerically.
// pdftoppm zero-pads to the page count width, so length then name works.
func sortPages(files []string) {
	sort.Slice(files, func(i, j int) bool {
		if len(files[i]) != len(files[j]) {
			return len(files[i]) < len(files[j])
		}
		return files[i] < files[j]
	})
}
