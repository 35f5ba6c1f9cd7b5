package web

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"codeberg.org/snonux/toolbelt/internal/apperr"
	"codeberg.org/snonux/toolbelt/internal/youtube"
)

// Artifact apps holding the downloaded streams
const (
	YouTubeAudioApp = "youtube/audio"
	YouTubeVideoApp = "youtube/video"
)

type youtubeApp struct {
	deps *Deps
	base string
}

func (a *youtubeApp) Name() string  { return "youtube" }
func (a *youtubeApp) Title() string { return "YouTube download" }

func (a *youtubeApp) Routes(r chi.Router) {
	r.Get("/", pageHandler("youtube", a.Title(), a.base))
	r.Post("/download", a.download)
	r.Get("/download-file/{type}/{filename}", a.file)
}

func (a *youtubeApp) download(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	audioDir, err := a.deps.Store.Dir(YouTubeAudioApp)
	if err != nil {
		writeError(w, r, err)
		return
	}
	videoDir, err := a.deps.Store.Dir(YouTubeVideoApp)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := youtube.NewDownloader(a.deps.YouTube, audioDir, videoDir).Download(r.Context(), req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := a.deps.Store.Register(r.Context(), YouTubeAudioApp, res.AudioFile, mimeOf(res.AudioFile)); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := a.deps.Store.Register(r.Context(), YouTubeVideoApp, res.VideoFile, mimeOf(res.VideoFile)); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"title":      res.Title,
		"audio_file": res.AudioFile,
		"video_file": res.VideoFile,
		"audio_url":  a.base + "/download-file/audio/" + res.AudioFile,
		"video_url":  a.base + "/download-file/video/" + res.VideoFile,
	})
}

func (a *youtubeApp) file(w http.ResponseWriter, r *http.Request) {
	var app string
	switch chi.URLParam(r, "type") {
	case "audio":
		app = YouTubeAudioApp
	case "video":
		app = YouTubeVideoApp
	default:
		writeError(w, r, apperr.Invalid("youtube.file", "invalid file type"))
		return
	}
	sendArtifact(w, r, a.deps.Store, app, chi.URLParam(r, "filename"), "")
}

func mimeOf(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
