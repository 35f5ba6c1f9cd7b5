package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/artifact"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

// MaxUploadBytes caps request bodies
const MaxUploadBytes = 16 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Error("response.encode_failed", "error", err)
	}
}

// errorJSON answers {"success":false,"error":msg}
func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// writeError maps err to a status via its kind and logs server-side
// failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		logger.L().Error("request.failed", "path", r.URL.Path, "error", err)
	} else {
		logger.L().Info("request.rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	errorJSON(w, status, apperr.Message(err))
}

// decodeJSON reads a JSON object body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	const op = "request.json"
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return apperr.Invalid(op, "Content-Type must be application/json")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.E(op, apperr.KindTooLarge, fmt.Errorf("request body too large"))
		}
		return apperr.Invalid(op, "invalid JSON body")
	}
	return nil
}

// upload is one multipart file
type upload struct {
	Name string
	Data []byte
}

// readUpload reads the multipart file field. allowed lists accepted
// extensions without the dot; nil accepts any.
func readUpload(w http.ResponseWriter, r *http.Request, field string, allowed []string) (upload, error) {
	const op = "request.upload"
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload{}, apperr.E(op, apperr.KindTooLarge, fmt.Errorf("file too large (max 16MB)"))
		}
		return upload{}, apperr.Invalid(op, "no file uploaded")
	}

	f, hdr, err := r.FormFile(field)
	if err != nil {
		return upload{}, apperr.Invalid(op, "no file uploaded")
	}
	defer f.Close()

	if hdr.Filename == "" {
		return upload{}, apperr.Invalid(op, "no file selected")
	}
	if allowed != nil && !hasExtension(hdr.Filename, allowed) {
		return upload{}, apperr.E(op, apperr.KindUnsupported,
			fmt.Errorf("unsupported file type (%s only)", strings.Join(allowed, ", ")))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return upload{Name: hdr.Filename, Data: data}, nil
}

func hasExtension(name string, allowed []string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	ext := strings.ToLower(name[i+1:])
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// sendArtifact streams an indexed file as an attachment named
// downloadName (the stored name when empty).
func sendArtifact(w http.ResponseWriter, r *http.Request, store *artifact.Store, app, name, downloadName string) {
	a, err := store.Lookup(r.Context(), app, name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := os.Open(a.Path)
	if err != nil {
		writeError(w, r, apperr.E("artifact.open", apperr.KindNotFound, fmt.Errorf("file not found: %s", name)))
		return
	}
	defer f.Close()

	if downloadName == "" {
		downloadName = a.Name
	}
	sendAttachment(w, r, f, a.MIME, downloadName, a.CreatedAt)
}

func sendAttachment(w http.ResponseWriter, r *http.Request, content io.ReadSeeker, mime, name string, modtime time.Time) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", contentDisposition(name))
	http.ServeContent(w, r, name, modtime, content)
}

// contentDisposition builds an attachment header with an ASCII fallback
// and an RFC 5987 UTF-8 name.
func contentDisposition(name string) string {
	fallback := internal.SecureFilename(name)
	if fallback == "" {
		fallback = "download"
	}
	if fallback == name {
		return fmt.Sprintf("attachment; filename=%q", name)
	}
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", fallback, url.PathEscape(name))
}

func errNotConfigured(what string) error {
	return fmt.Errorf("%s is not configured", what)
}
