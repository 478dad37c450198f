package handlers

import (
	"io/fs"
	"net/http"

	"englishdrills/internal/metrics"
)

// RouterConfig lists the handlers mounted by NewRouter
type RouterConfig struct {
	Middleware *Middleware
	Lessons    *LessonHandler
	Speech     *SpeechHandler
	Health     *HealthHandler
	Metrics    *metrics.Metrics
	Assets     fs.FS
	StaticDir  string
}

// NewRouter registers every route. Learner identity is attached per route
// so the metrics middleware, which wraps the mux, sees the matched pattern.
func NewRouter(c RouterConfig) http.Handler {
	mux := http.NewServeMux()
	mw := c.Middleware
	learner := func(h http.HandlerFunc) http.Handler { return mw.Learner(h) }

	// Static files
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(c.Assets)))
	if c.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(c.StaticDir))))
	}

	// Lessons
	mux.Handle("GET /{$}", learner(c.Lessons.Index))
	mux.Handle("GET /lessons/{lessonID}", learner(c.Lessons.ShowLesson))
	mux.Handle("POST /lessons/{lessonID}/dispatch", learner(mw.CSRFProtect(c.Lessons.Dispatch)))
	mux.Handle("GET /lessons/{lessonID}/score", learner(c.Lessons.Score))
	mux.Handle("POST /preferences/accent", learner(mw.CSRFProtect(c.Lessons.SetAccent)))

	// Speech
	mux.Handle("GET /api/speak", learner(mw.RateLimit(c.Speech.Speak)))

	// Operations
	mux.HandleFunc("GET /healthz", c.Health.Healthz)
	if c.Metrics != nil {
		mux.Handle("GET /metrics", c.Metrics.Handler())
	}

	var h http.Handler = mw.Logging(mux)
	if c.Metrics != nil {
		h = c.Metrics.Middleware(h)
	}
	return h
}
