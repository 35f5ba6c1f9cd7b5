package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/weather"
)

type weatherApp struct {
	deps *Deps
	base string
}

func (a *weatherApp) Name() string  { return "weather" }
func (a *weatherApp) Title() string { return "Weather" }

func (a *weatherApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("weather", a.Title(), a.base))
	r.Get("/api/weather", a.current)
}

func (a *weatherApp) current(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := weather.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a.deps.Weather == nil {
		writeError(w, r, apperr.E("weather.request", apperr.KindInternal, errNotConfigured("weather")))
		return
	}

	report, err := a.deps.Weather.Current(r.Context(), lat, lon)
	if status := weather.StatusOf(err); status != 0 {
		logger.L().Warn("weather.upstream_status", "status", status)
		errorJSON(w, status, apperr.Message(err))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
