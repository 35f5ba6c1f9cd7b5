package translation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
)

const (
	// PreviewChars is the length of the preview returned with a translation
	PreviewChars = 200
	// ChunkChars bounds the text sent in one model call
	ChunkChars = 4000
)

// Result is a translated document
type Result struct {
	Filename string
	Text     string
	Preview  string
	Target   string
}

// OutputName returns "<stem>_translated_<code>.txt" for an uploaded name
func OutputName(uploadName, code string) string {
	stem := internal.FileStem(internal.SecureFilename(uploadName))
	if stem == "" {
		stem = "document"
	}
	return internal.SecureFilename(fmt.Sprintf("%s_translated_%s.txt", stem, code))
}

// Preview returns the first PreviewChars characters, with "..." appended
// when the text was cut.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewChars {
		return text
	}
	return string([]rune(text)[:PreviewChars]) + "..."
}

// DecodeUpload checks that data is non-empty UTF-8 text
func DecodeUpload(data []byte) (string, error) {
	const op = "translate.decode"
	if !utf8.Valid(data) {
		return "", apperr.Invalid(op, "file encoding error: only UTF-8 files are supported")
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return "", apperr.Invalid(op, "file is empty")
	}
	return text, nil
}

// TranslateText translates text to the language named by language (display
// name or code) with automatic source detection. Long text is sent in
// paragraph-aligned chunks.
func TranslateText(ctx context.Context, t Translator, text, language string) (string, string, error) {
	if strings.TrimSpace(text) == "" {
		return "", "", apperr.E("translate.text", apperr.KindInvalid, apperr.ErrEmptyInput)
	}
	code := LanguageCode(language)

	var out []string
	for _, chunk := range Chunk(text, ChunkChars) {
		translated, err := t.Translate(ctx, chunk, "auto", code)
		if err != nil {
			return "", code, err
		}
		out = append(out, translated)
	}
	return strings.Join(out, "\n\n"), code, nil
}

// TranslateDocument translates an uploaded document and names the output
func TranslateDocument(ctx context.Context, t Translator, uploadName string, data []byte, language string) (Result, error) {
	text, err := DecodeUpload(data)
	if err != nil {
		return Result{}, err
	}

	translated, code, err := TranslateText(ctx, t, text, language)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Filename: OutputName(uploadName, code),
		Text:     translated,
		Preview:  Preview(translated),
		Target:   code,
	}, nil
}

// Chunk splits text on blank lines into pieces of at most max characters.
// A single paragraph longer than max is split on line breaks, then hard.
func Chunk(text string, max int) []string {
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	add := func(piece, sep string) {
		n := utf8.RuneCountInString(piece)
		if curLen > 0 && curLen+len(sep)+n > max {
			flush()
		}
		if curLen > 0 {
			cur.WriteString(sep)
			curLen += len(sep)
		}
		cur.WriteString(piece)
		curLen += n
	}

	for _, para := range strings.Split(text, "\n\n") {
		if utf8.RuneCountInString(para) <= max {
			add(para, "\n\n")
			continue
		}
		flush()
		for _, line := range strings.Split(para, "\n") {
			runes := []rune(line)
			for len(runes) > max {
				flush()
				chunks = append(chunks, string(runes[:max]))
				runes = runes[max:]
			}
			add(string(runes), "\n")
		}
		flush()
	}
	flush()
	return chunks
}
