package wordcloud

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

// Plasma is a sample of the matplotlib plasma colormap without its
// palest end, which vanishes on white.
var Plasma = []color.Color{
	color.RGBA{0x0d, 0x08, 0x87, 0xff},
	color.RGBA{0x54, 0x02, 0xa3, 0xff},
	color.RGBA{0x8b, 0x0a, 0xa5, 0xff},
	color.RGBA{0xb9, 0x32, 0x89, 0xff},
	color.RGBA{0xdb, 0x5c, 0x68, 0xff},
	color.RGBA{0xf4, 0x88, 0x49, 0xff},
	color.RGBA{0xfe, 0xbc, 0x2b, 0xff},
}

// FontCandidates are tried in order when no font path is configured.
// They carry Hangul glyphs, which the Go font lacks.
var FontCandidates = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/nanum/NanumGothic.ttf",
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/Library/Fonts/AppleGothic.ttf",
	"C:\\Windows\\Fonts\\malgun.ttf",
}

// Options controls rendering
type Options struct {
	Width           int
	Height          int
	MaxWords        int
	FontPath        string
	RelativeScaling float64
	MinFontSize     float64
	MaxFontSize     float64
	Background      color.Color
	Palette         []color.Color
}

// DefaultOptions returns an 800x400 white cloud in plasma colors
func DefaultOptions() Options {
	return Options{
		Width:           800,
		Height:          400,
		MaxWords:        DefaultMaxWords,
		RelativeScaling: 0.5,
		MinFontSize:     10,
		Background:      color.White,
		Palette:         Plasma,
	}
}

func (o *Options) fill() {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.MaxWords <= 0 {
		o.MaxWords = d.MaxWords
	}
	if o.RelativeScaling < 0 || o.RelativeScaling > 1 {
		o.RelativeScaling = d.RelativeScaling
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = d.MinFontSize
	}
	if o.MaxFontSize <= 0 {
		o.MaxFontSize = float64(o.Height) * 0.3
	}
	if o.Background == nil {
		o.Background = d.Background
	}
	if len(o.Palette) == 0 {
		o.Palette = d.Palette
	}
}

// LoadFont parses the font at path. With an empty path the first existing
// candidate is used, falling back to the Go font. TrueType collections use
// their first face.
func LoadFont(path string) (*opentype.Font, error) {
	if path == "" {
		for _, c := range FontCandidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}
	if path == "" {
		return opentype.Parse(goregular.TTF)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".ttc") {
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font collection %s: %w", path, err)
		}
		return coll.Font(0)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	return f, nil
}

// placement is where one word landed
type placement struct {
	word  Word
	size  float64
	rect  image.Rectangle
	dot   fixed.Point26_6
	color color.Color
}

// Render lays words out on a spiral from the center, largest first, and
// draws them. A word that fits nowhere is shrunk and finally skipped.
func Render(words []Word, opts Options) (*image.RGBA, error) {
	const op = "wordcloud.render"
	opts.fill()
	if len(words) == 0 {
		return nil, apperr.E(op, apperr.KindInvalid, fmt.Errorf("no words to render"))
	}
	if len(words) > opts.MaxWords {
		words = words[:opts.MaxWords]
	}

	f, err := LoadFont(opts.FontPath)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	faces := map[int]font.Face{}
	defer func() {
		for _, face := range faces {
			face.Close()
		}
	}()
	faceFor := func(size float64) (font.Face, error) {
		key := int(math.Round(size))
		if face, ok := faces[key]; ok {
			return face, nil
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(key), DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, fmt.Errorf("failed to create font face: %w", err)
		}
		faces[key] = face
		return face, nil
	}

	maxCount := words[0].Count
	var placed []placement
	for i, w := range words {
		size := fontSize(i, len(words), w.Count, maxCount, opts)
		for ; size >= opts.MinFontSize; size *= 0.85 {
			face, err := faceFor(size)
			if err != nil {
				return nil, err
			}
			p, ok := place(w, face, img.Bounds(), placed)
			if !ok {
				continue
			}
			p.size = size
			p.color = opts.Palette[i%len(opts.Palette)]
			drawWord(img, face, p)
			placed = append(placed, p)
			break
		}
	}

	logger.L().Debug("wordcloud.rendered", "words", len(words), "placed", len(placed))
	if len(placed) == 0 {
		return nil, apperr.E(op, apperr.KindInternal, fmt.Errorf("no word fits the image"))
	}
	return img, nil
}

// fontSize blends the rank of the word with its frequency relative to the
// most frequent word; scaling 1 is pure frequency, 0 pure rank.
func fontSize(rank, n, count, maxCount int, opts Options) float64 {
	freq := float64(count) / float64(maxCount)
	byRank := float64(n-rank) / float64(n)
	scale := opts.RelativeScaling*freq + (1-opts.RelativeScaling)*byRank
	return opts.MinFontSize + (opts.MaxFontSize-opts.MinFontSize)*scale
}

func place(w Word, face font.Face, bounds image.Rectangle, placed []placement) (placement, bool) {
	const pad = 2
	m := face.Metrics()
	width := font.MeasureString(face, w.Text).Ceil()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	height := ascent + descent
	if width+2*pad > bounds.Dx() || height+2*pad > bounds.Dy() {
		return placement{}, false
	}

	cx, cy := bounds.Dx()/2, bounds.Dy()/2
	aspect := float64(bounds.Dx()) / float64(bounds.Dy())
	maxT := math.Hypot(float64(bounds.Dx()), float64(bounds.Dy()))

	for t := 0.0; t < maxT; t += 0.25 {
		x := cx + int(aspect*t*math.Cos(t)) - width/2
		y := cy + int(t*math.Sin(t)) - height/2
		r := image.Rect(x-pad, y-pad, x+width+pad, y+height+pad)
		if !r.In(bounds) || overlaps(r, placed) {
			continue
		}
		return placement{
			word: w,
			rect: r,
			dot:  fixed.P(x, y+ascent),
		}, true
	}
	return placement{}, false
}

func overlaps(r image.Rectangle, placed []placement) bool {
	for _, p := range placed {
		if r.Overlaps(p.rect) {
			return true
		}
	}
	return false
}

func drawWord(img draw.Image, face font.Face, p placement) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(p.color),
		Face: face,
		Dot:  p.dot,
	}
	d.DrawString(p.word.Text)
}

// WritePNG renders words and encodes the result as PNG
func WritePNG(w io.Writer, words []Word, opts Options) error {
	img, err := Render(words, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Generate counts the words of text and writes the cloud as PNG
func Generate(w io.Writer, text string, opts Options) ([]Word, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.E("wordcloud.generate", apperr.KindInvalid, apperr.ErrEmptyInput)
	}
	opts.fill()
	words := Frequencies(text, opts.MaxWords)
	if err := WritePNG(w, words, opts); err != nil {
		return nil, err
	}
	return words, nil
}
