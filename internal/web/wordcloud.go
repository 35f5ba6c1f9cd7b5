package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/encoding/korean"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/crawl"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/wordcloud"
)

var textExtensions = []string{"txt", "text", "md"}

type wordcloudApp struct {
	deps *Deps
	base string
}

func (a *wordcloudApp) Name() string  { return "wordcloud" }
func (a *wordcloudApp) Title() string { return "Word cloud" }

func (a *wordcloudApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("wordcloud", a.Title(), a.base))
	r.Post("/upload", a.upload)
	r.Post("/crawl", a.crawl)
	r.Get("/download/{filename}", func(w http.ResponseWriter, r *http.Request) {
		sendArtifact(w, r, a.deps.Store, a.Name(), chi.URLParam(r, "filename"), "")
	})
}

func (a *wordcloudApp) upload(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "file", textExtensions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, err := DecodeText(up.Data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.generate(w, r, text)
}

func (a *wordcloudApp) crawl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL *string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.URL == nil {
		writeError(w, r, apperr.Invalid("wordcloud.crawl", "no URL provided"))
		return
	}
	if strings.TrimSpace(*req.URL) == "" {
		writeError(w, r, apperr.Invalid("wordcloud.crawl", "please enter a URL"))
		return
	}

	crawler := a.deps.Crawler
	if crawler == nil {
		crawler = crawl.New(nil)
	}
	text, err := crawler.Fetch(r.Context(), *req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.generate(w, r, text)
}

func (a *wordcloudApp) generate(w http.ResponseWriter, r *http.Request, text string) {
	var buf bytes.Buffer
	words, err := wordcloud.Generate(&buf, text, a.deps.WordCloud)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := internal.TimestampedName("wordcloud", "_"+internal.ShortID()+".png", time.Now())
	if _, err := a.deps.Store.Save(r.Context(), a.Name(), name, "image/png", &buf); err != nil {
		writeError(w, r, err)
		return
	}
	logger.L().Info("wordcloud.generated", "file", name, "words", len(words))

	resp := map[string]any{
		"success":      true,
		"message":      "word cloud created",
		"download_url": a.base + "/download/" + name,
		"filename":     name,
	}
	if s, ok := a.analyze(r.Context(), text); ok {
		resp["sentiment"] = s
	}
	writeJSON(w, http.StatusOK, resp)
}

// analyze never fails the request; errors are logged and the result
// left out.
func (a *wordcloudApp) analyze(ctx context.Context, text string) (any, bool) {
	if a.deps.Sentiment == nil {
		return nil, false
	}
	res, err := a.deps.Sentiment.Analyze(ctx, text)
	if err != nil {
		logger.L().Warn("wordcloud.sentiment_failed", "analyzer", a.deps.Sentiment.Name(), "error", err)
		return nil, false
	}
	return res, true
}

// DecodeText reads an uploaded text file as UTF-8, falling back to CP949.
// Blank content is rejected.
func DecodeText(data []byte) (string, error) {
	const op = "wordcloud.decode"
	var text string
	if utf8.Valid(data) {
		text = strings.TrimPrefix(string(data), "\ufeff")
	} else {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
			return "", apperr.E(op, apperr.KindInvalid,
				fmt.Errorf("cannot read file encoding: use UTF-8 or CP949"))
		}
		text = string(decoded)
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.Invalid(op, "file is empty")
	}
	return text, nil
}
