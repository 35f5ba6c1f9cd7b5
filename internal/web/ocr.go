package web

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/ocr"
	"codeberg.org/snonux/toolbelt/internal/table"
)

var ocrExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff", "pdf"}

type ocrApp struct {
	deps *Deps
	base string
}

func (a *ocrApp) Name() string  { return "ocr" }
func (a *ocrApp) Title() string { return "OCR" }

func (a *ocrApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("ocr", a.Title(), a.base))
	r.Post("/upload", a.upload)
	r.Post("/convert-to-excel", a.convert)
}

// extract runs OCR and answers 422 itself when nothing was recognized
func (a *ocrApp) extract(w http.ResponseWriter, r *http.Request, up upload) (string, bool) {
	if a.deps.OCR == nil {
		writeError(w, r, apperr.E("ocr.request", apperr.KindInternal, errNotConfigured("OCR")))
		return "", false
	}
	text, err := a.deps.OCR.Extract(r.Context(), up.Name, up.Data)
	if errors.Is(err, ocr.ErrNoText) {
		errorJSON(w, http.StatusUnprocessableEntity, ocr.ErrNoText.Error())
		return "", false
	}
	if err != nil {
		writeError(w, r, err)
		return "", false
	}
	return text, true
}

func (a *ocrApp) upload(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "file", ocrExtensions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, ok := a.extract(w, r, up)
	if !ok {
		return
	}

	name := stemOr(up.Name, "ocr_result") + ".txt"
	stored := internal.TimestampedName(internal.FileStem(name), "_"+internal.ShortID()+".txt", time.Now())
	if _, err := a.deps.Store.Save(r.Context(), a.Name(), stored, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		logger.L().Warn("ocr.save_failed", "error", err)
	}

	logger.L().Info("ocr.extracted", "upload", up.Name, "chars", len(text))
	sendAttachment(w, r, strings.NewReader(text), "text/plain; charset=utf-8", name, time.Now())
}

func (a *ocrApp) convert(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, "file", []string{"pdf"})
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, ok := a.extract(w, r, up)
	if !ok {
		return
	}

	tbl, err := table.Parse(text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := table.WriteXLSX(&buf, tbl); err != nil {
		writeError(w, r, err)
		return
	}

	name := stemOr(up.Name, "ocr_table") + ".xlsx"
	stored := internal.TimestampedName(internal.FileStem(name), "_"+internal.ShortID()+".xlsx", time.Now())
	if _, err := a.deps.Store.Save(r.Context(), a.Name(), stored, table.XLSXMime, bytes.NewReader(buf.Bytes())); err != nil {
		logger.L().Warn("ocr.save_failed", "error", err)
	}

	logger.L().Info("ocr.table", "upload", up.Name, "columns", tbl.Width(), "rows", len(tbl.Rows))
	sendAttachment(w, r, bytes.NewReader(buf.Bytes()), table.XLSXMime, name, time.Now())
}

// stemOr returns the secure stem of an uploaded name, or fallback
func stemOr(uploadName, fallback string) string {
	stem := internal.FileStem(internal.SecureFilename(uploadName))
	if stem == "" {
		return fallback
	}
	return stem
}
