// Package web serves the HTTP surface of every app. Each app owns a small
// route set; "serve all" mounts them side by side under /<app>.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codeberg.org/snonux/toolbelt/internal/artifact"
	"codeberg.org/snonux/toolbelt/internal/audio"
	"codeberg.org/snonux/toolbelt/internal/crawl"
	"codeberg.org/snonux/toolbelt/internal/jobs"
	"codeberg.org/snonux/toolbelt/internal/logger"
	"codeberg.org/snonux/toolbelt/internal/metrics"
	"codeberg.org/snonux/toolbelt/internal/ocr"
	"codeberg.org/snonux/toolbelt/internal/sentiment"
	"codeberg.org/snonux/toolbelt/internal/translation"
	"codeberg.org/snonux/toolbelt/internal/weather"
	"codeberg.org/snonux/toolbelt/internal/wordcloud"
	"codeberg.org/snonux/toolbelt/internal/youtube"
)

// ShutdownTimeout bounds graceful shutdown
const ShutdownTimeout = 5 * time.Second

// OpenDelay is how long --open waits before launching the browser
const OpenDelay = 1500 * time.Millisecond

// AppNames lists the apps in menu order
var AppNames = []string{"tts", "translate", "ocr", "jobs", "wordcloud", "sentiment", "weather", "qr", "youtube"}

// Deps carries what the handlers need. Fields an app does not use may be
// nil when only that app is served.
type Deps struct {
	Store   *artifact.Store
	Metrics *metrics.Metrics

	TTS        audio.Provider
	Translator translation.Translator
	OCR        *ocr.Extractor
	Jobs       *jobs.Client
	JobPages   int
	JobsCSV    string // csv encoding, cp949 or utf-8
	Crawler    *crawl.Crawler
	WordCloud  wordcloud.Options
	Sentiment  sentiment.Analyzer
	Weather    *weather.Client
	YouTube    youtube.Source // nil downloads from YouTube
}

// App is the route set of one app. base is the path prefix the app is
// mounted under and is used to build download URLs.
type App interface {
	Name() string
	Title() string
	Routes(r chi.Router)
}

// NewApp builds the named app
func NewApp(name string, deps *Deps, base string) (App, error) {
	switch name {
	case "tts":
		return &ttsApp{deps: deps, base: base}, nil
	case "translate":
		return &translateApp{deps: deps, base: base}, nil
	case "ocr":
		return &ocrApp{deps: deps, base: base}, nil
	case "jobs":
		return &jobsApp{deps: deps, base: base}, nil
	case "wordcloud":
		return &wordcloudApp{deps: deps, base: base}, nil
	case "sentiment":
		return &sentimentApp{deps: deps, base: base}, nil
	case "weather":
		return &weatherApp{deps: deps, base: base}, nil
	case "qr":
		return &qrApp{deps: deps, base: base}, nil
	case "youtube":
		return &youtubeApp{deps: deps, base: base}, nil
	default:
		return nil, fmt.Errorf("unknown app: %s (available: %s, all)", name, strings.Join(AppNames, ", "))
	}
}

// NewRouter serves one app at the root, or every app under /<app> when
// name is "all".
func NewRouter(name string, deps *Deps) (http.Handler, error) {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(enableCORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorJSON(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", deps.Metrics.Handler())

	if name != "all" {
		app, err := NewApp(name, deps, "")
		if err != nil {
			return nil, err
		}
		r.Group(func(g chi.Router) {
			g.Use(deps.Metrics.Middleware(app.Name()))
			app.Routes(g)
		})
		return r, nil
	}

	r.Get("/", pageHandler("index", "toolbelt", ""))
	for _, n := range AppNames {
		app, err := NewApp(n, deps, "/"+n)
		if err != nil {
			return nil, err
		}
		r.Route("/"+n, func(sr chi.Router) {
			sr.Use(deps.Metrics.Middleware(app.Name()))
			app.Routes(sr)
		})
	}
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.L().Debug("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// within ShutdownTimeout. With open set the browser is pointed at the
// server after OpenDelay.
func Run(ctx context.Context, addr string, handler http.Handler, open bool) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.L().Info("server.start", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	if open {
		go func() {
			select {
			case <-time.After(OpenDelay):
				if err := openBrowser(BrowserURL(addr)); err != nil {
					logger.L().Warn("server.open_browser_failed", "error", err)
				}
			case <-ctx.Done():
			}
		}()
	}

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.L().Info("server.shutdown", "addr", addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		return nil
	}
}

// BrowserURL turns a listen address into a URL a browser can open
func BrowserURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	host = strings.Replace(host, "0.0.0.0", "localhost", 1)
	return "http://" + host + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
