package ocr

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

type fakeEngine struct {
	texts []string
	calls int
	err   error
}

func (f *fakeEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	t := f.texts[f.calls%len(f.texts)]
	f.calls++
	return t, nil
}

type fakeRasterizer struct {
	pages int
}

func (f *fakeRasterizer) Pages(ctx context.Context, pdf []byte) ([][]byte, error) {
	out := make([][]byte, f.pages)
	for i := range out {
		out[i] = []byte{byte(i)}
	}
	return out, nil
}

func TestExtractPDFSeparatesPages(t *testing.T) {
	x := &Extractor{
		Engine:     &fakeEngine{texts: []string{"first", "second"}},
		Rasterizer: &fakeRasterizer{pages: 2},
	}

	text, err := x.ExtractPDF(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("ExtractPDF failed: %v", err)
	}
	want := "\n--- Page 1 ---\nfirst\n\n--- Page 2 ---\nsecond\n"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestExtractDispatch(t *testing.T) {
	engine := &fakeEngine{texts: []string{"hello"}}
	x := &Extractor{Engine: engine, Rasterizer: &fakeRasterizer{pages: 3}}
	ctx := context.Background()

	text, err := x.Extract(ctx, "scan.PNG", []byte("img"))
	if err != nil || text != "hello" {
		t.Fatalf("image extract = %q, %v", text, err)
	}

	text, err = x.Extract(ctx, "doc.pdf", []byte("pdf"))
	if err != nil {
		t.Fatalf("pdf extract failed: %v", err)
	}
	if strings.Count(text, "--- Page") != 3 {
		t.Errorf("expected 3 page separators in %q", text)
	}

	_, err = x.Extract(ctx, "notes.docx", []byte("x"))
	if !apperr.IsKind(err, apperr.KindUnsupported) {
		t.Errorf("expected unsupported kind, got %v", err)
	}
}

func TestExtractNoText(t *testing.T) {
	x := &Extractor{Engine: &fakeEngine{texts: []string{"  \n "}}}

	_, err := x.Extract(context.Background(), "a.jpg", []byte("img"))
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestExtractEngineFailure(t *testing.T) {
	x := &Extractor{Engine: &fakeEngine{err: errors.New("boom")}}

	_, err := x.ExtractImage(context.Background(), []byte("img"))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped engine error, got %v", err)
	}
}

func TestAllowed(t *testing.T) {
	tests := map[string]bool{
		"a.png": true, "a.JPEG": true, "b.tiff": true, "c.pdf": true,
		"d.txt": false, "noext": false, "e.tif": false,
	}
	for name, want := range tests {
		if got := Allowed(name); got != want {
			t.Errorf("Allowed(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseLanguages(t *testing.T) {
	got := ParseLanguages("kor+eng")
	if len(got) != 2 || got[0] != "kor" || got[1] != "eng" {
		t.Errorf("unexpected languages %v", got)
	}
	if got := ParseLanguages("jpn, eng"); len(got) != 2 {
		t.Errorf("unexpected languages %v", got)
	}
}

func TestSortPages(t *testing.T) {
	files := []string{"/t/page-10.png", "/t/page-2.png", "/t/page-1.png"}
	sortPages(files)
	if files[0] != "/t/page-1.png" || files[2] != "/t/page-10.png" {
		t.Errorf("unexpected order %v", files)
	}
}

func TestNewPdftoppmIgnoresMissingDir(t *testing.T) {
	p := NewPdftoppm(0, "/definitely/not/here")
	if p.Dir != "" || p.DPI != 300 {
		t.Errorf("unexpected rasterizer %+v", p)
	}
}

func TestTesseract_Integration(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed")
	}
	engine := NewTesseractEngine(nil)
	if engine.Name() != "tesseract" {
		t.Errorf("unexpected name %s", engine.Name())
	}
}
