package wordcloud

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

func TestFrequencies(t *testing.T) {
	text := "The cat and the CAT. A dog's dog, dogs! 한국어 한국어 x 42 cat"

	got := Frequencies(text, 0)
	want := []Word{
		{"cat", 3},
		{"dog", 2},
		{"한국어", 2},
		{"dogs", 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFrequenciesLimit(t *testing.T) {
	got := Frequencies("alpha beta gamma delta alpha", 2)
	if len(got) != 2 || got[0].Text != "alpha" || got[1].Text != "beta" {
		t.Errorf("unexpected top words %v", got)
	}
}

func TestFontSizeScaling(t *testing.T) {
	opts := DefaultOptions()
	opts.fill()

	top := fontSize(0, 10, 10, 10, opts)
	if math.Abs(top-opts.MaxFontSize) > 1e-9 {
		t.Errorf("top word should get max size, got %f", top)
	}
	low := fontSize(9, 10, 1, 10, opts)
	if low <= opts.MinFontSize || low >= top {
		t.Errorf("unexpected size for last word: %f", low)
	}

	opts.RelativeScaling = 1
	if got := fontSize(5, 10, 10, 10, opts); math.Abs(got-opts.MaxFontSize) > 1e-9 {
		t.Errorf("pure frequency scaling should ignore rank, got %f", got)
	}
}

func TestGeneratePNG(t *testing.T) {
	text := strings.Repeat("golang gopher channel ", 5) + "goroutine interface slice map"

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.FontPath = ""
	words, err := Generate(&buf, text, opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(words) != 7 {
		t.Errorf("expected 7 words, got %d", len(words))
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 800 || b.Dy() != 400 {
		t.Errorf("unexpected size %v", b)
	}

	r, g, bl, _ := img.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || bl != 0xffff {
		t.Error("expected white background in the corner")
	}

	colored := false
	for y := b.Min.Y; y < b.Max.Y && !colored; y += 2 {
		for x := b.Min.X; x < b.Max.X; x += 2 {
			if r, g, b, _ := img.At(x, y).RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
				colored = true
				break
			}
		}
	}
	if !colored {
		t.Error("expected some words drawn")
	}
}

func TestGenerateEmpty(t *testing.T) {
	_, err := Generate(&bytes.Buffer{}, "   ", DefaultOptions())
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("expected invalid kind, got %v", err)
	}

	_, err = Generate(&bytes.Buffer{}, "the and of", DefaultOptions())
	if !apperr.IsKind(err, apperr.KindInvalid) {
		t.Errorf("expected invalid kind for stopwords only, got %v", err)
	}
}

func TestLoadFontMissing(t *testing.T) {
	if _, err := LoadFont("/no/such/font.ttf"); err == nil {
		t.Error("expected error for missing font")
	}
}
