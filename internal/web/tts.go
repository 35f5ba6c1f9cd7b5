package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/audio"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

type ttsApp struct {
	deps *Deps
	base string
}

func (a *ttsApp) Name() string  { return "tts" }
func (a *ttsApp) Title() string { return "Text to speech" }

func (a *ttsApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("tts", a.Title(), a.base))
	r.Post("/api/text-to-speech", a.synthesize)
	r.Get("/api/download/{filename}", a.download)
	r.Get("/api/test", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "server is running"})
	})
}

// fail answers in the {"success":false,"message"} shape the TTS page reads
func (a *ttsApp) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		logger.L().Error("tts.failed", "error", err)
	}
	writeJSON(w, status, map[string]any{"success": false, "message": apperr.Message(err)})
}

func (a *ttsApp) synthesize(w http.ResponseWriter, r *http.Request) {
	const op = "tts.request"
	var req struct {
		Text *string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Text == nil {
		a.fail(w, r, apperr.Invalid(op, "text is required"))
		return
	}
	if a.deps.TTS == nil {
		a.fail(w, r, apperr.E(op, apperr.KindInternal, errNotConfigured("text to speech")))
		return
	}

	dir, err := a.deps.Store.Dir(a.Name())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	name, err := audio.Synthesize(r.Context(), a.deps.TTS, dir, *req.Text, audio.MaxRequestChars)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.deps.Store.Register(r.Context(), a.Name(), name, "audio/mpeg"); err != nil {
		a.fail(w, r, err)
		return
	}

	logger.L().Info("tts.synthesized", "file", name, "provider", a.deps.TTS.Name())
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "conversion complete",
		"file":         name,
		"download_url": a.base + "/api/download/" + name,
	})
}

func (a *ttsApp) download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	sendArtifact(w, r, a.deps.Store, a.Name(), name, "speech_"+internal.FileStem(name)+".mp3")
}
