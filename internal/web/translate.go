package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/translation"
)

// DefaultUploadLanguage is the target when the form names none
const DefaultUploadLanguage = "한국어"

type translateApp struct {
	deps *Deps
	base string
}

func (a *translateApp) Name() string  { return "translate" }
func (a *translateApp) Title() string { return "Translate" }

func (a *translateApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("translate", a.Title(), a.base))
	r.Post("/upload", a.upload)
	r.Get("/download/{filename}", func(w http.ResponseWriter, r *http.Request) {
		sendArtifact(w, r, a.deps.Store, a.Name(), chi.URLParam(r, "filename"), "")
	})
	r.Post("/api/translate", a.translate)
}

func (a *translateApp) translator() (translation.Translator, error) {
	if a.deps.Translator == nil {
		return nil, apperr.E("translate.request", apperr.KindInternal, errNotConfigured("translation"))
	}
	return a.deps.Translator, nil
}

func (a *translateApp) upload(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "file", []string{"txt"})
	if err != nil {
		writeError(w, r, err)
		return
	}
	tr, err := a.translator()
	if err != nil {
		writeError(w, r, err)
		return
	}

	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		language = DefaultUploadLanguage
	}

	res, err := translation.TranslateDocument(r.Context(), tr, up.Name, up.Data, language)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := a.deps.Store.Save(r.Context(), a.Name(), res.Filename, "text/plain; charset=utf-8", strings.NewReader(res.Text)); err != nil {
		writeError(w, r, err)
		return
	}

	logger.L().Info("translate.file", "upload", up.Name, "output", res.Filename, "target", res.Target)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"filename":     res.Filename,
		"download_url": a.base + "/download/" + res.Filename,
		"preview":      res.Preview,
	})
}

func (a *translateApp) translate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tr, err := a.translator()
	if err != nil {
		writeError(w, r, err)
		return
	}

	text, code, err := translation.TranslateText(r.Context(), tr, req.Text, req.Language)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"text":     text,
		"language": code,
	})
}
