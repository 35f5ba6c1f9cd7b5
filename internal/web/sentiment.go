package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/sentiment"
)

type sentimentApp struct {
	deps *Deps
	base string
}

func (a *sentimentApp) Name() string  { return "sentiment" }
func (a *sentimentApp) Title() string { return "Sentiment" }

func (a *sentimentApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("sentiment", a.Title(), a.base))
	r.Get("/api", a.usage)
	r.Post("/analyze", a.analyzeJSON)
	r.Post("/upload", a.upload)
}

func (a *sentimentApp) usage(w http.ResponseWriter, r *http.Request) {
	name := "none"
	if a.deps.Sentiment != nil {
		name = a.deps.Sentiment.Name()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"analyzer": name,
		"endpoints": map[string]string{
			"POST " + a.base + "/analyze": `JSON {"text": "..."}`,
			"POST " + a.base + "/upload":  "multipart file field \"file\" (.txt, .text, .md)",
		},
		"result": "polarity in [-1, 1], positive_prob, negative_prob, sentiment (positive|negative), subjectivity (lexicon only)",
	})
}

func (a *sentimentApp) analyzeJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a.respond(w, r, req.Text)
}

func (a *sentimentApp) upload(w http.ResponseWriter, r *http.Request) {
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
	a.respond(w, r, text)
}

func (a *sentimentApp) respond(w http.ResponseWriter, r *http.Request, text string) {
	if a.deps.Sentiment == nil {
		writeError(w, r, apperr.E("sentiment.request", apperr.KindInternal, errNotConfigured("sentiment analysis")))
		return
	}
	if _, err := sentiment.Prepare(text, 0); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.deps.Sentiment.Analyze(r.Context(), text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"analyzer": a.deps.Sentiment.Name(),
		"result":   res,
	})
}
