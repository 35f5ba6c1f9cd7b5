package web

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/qrcode"
)

type qrApp struct {
	deps *Deps
	base string
}

func (a *qrApp) Name() string  { return "qr" }
func (a *qrApp) Title() string { return "QR code" }

func (a *qrApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("qr", a.Title(), a.base))
	r.Post("/", a.generate)
	r.Get("/download/{filename}", func(w http.ResponseWriter, r *http.Request) {
		sendArtifact(w, r, a.deps.Store, a.Name(), chi.URLParam(r, "filename"), "")
	})
}

func (a *qrApp) generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, r, apperr.Invalid("qr.request", "invalid form"))
		return
	}

	png, err := qrcode.Generate(r.PostForm.Get("qr_data"), qrcode.DefaultSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := qrcode.FileName(time.Now())
	if _, err := a.deps.Store.Save(r.Context(), a.Name(), name, "image/png", bytes.NewReader(png)); err != nil {
		writeError(w, r, err)
		return
	}
	logger.L().Info("qr.generated", "file", name)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"filename":     name,
		"download_url": a.base + "/download/" + name,
	})
}
