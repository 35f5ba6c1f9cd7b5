package web

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/jobs"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

type jobsApp struct {
	deps *Deps
	base string
}

func (a *jobsApp) Name() string  { return "jobs" }
func (a *jobsApp) Title() string { return "Job search" }

func (a *jobsApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("jobs", a.Title(), a.base))
	r.Get("/search", a.search)
	r.Get("/download", a.download)
}

func (a *jobsApp) find(r *http.Request) (string, []jobs.Job, error) {
	if a.deps.Jobs == nil {
		return "", nil, apperr.E("jobs.request", apperr.KindInternal, errNotConfigured("job search"))
	}
	keyword := r.URL.Query().Get("keyword")
	found, err := a.deps.Jobs.Search(r.Context(), keyword, a.deps.JobPages)
	return keyword, found, err
}

func (a *jobsApp) search(w http.ResponseWriter, r *http.Request) {
	keyword, found, err := a.find(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if found == nil {
		found = []jobs.Job{}
	}
	logger.L().Info("jobs.search", "keyword", keyword, "count", len(found))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"keyword": keyword,
		"count":   len(found),
		"jobs":    found,
	})
}

func (a *jobsApp) download(w http.ResponseWriter, r *http.Request) {
	_, found, err := a.find(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := jobs.WriteCSV(&buf, found, a.deps.JobsCSV); err != nil {
		writeError(w, r, apperr.E("jobs.csv", apperr.KindInvalid, err))
		return
	}
	sendAttachment(w, r, bytes.NewReader(buf.Bytes()), jobs.ContentType(a.deps.JobsCSV), "jobs.csv", time.Now())
}
