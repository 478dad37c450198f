package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"englishdrills/internal/audio"
	"englishdrills/internal/config"
	"englishdrills/internal/handlers"
	"englishdrills/internal/lessons"
	"englishdrills/internal/logger"
	"englishdrills/internal/metrics"
	"englishdrills/internal/quiz"
	"englishdrills/internal/render"
	"englishdrills/internal/security"
	"englishdrills/internal/service"
)

const janitorInterval = time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.IsProduction(), cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Lesson content and templates are embedded; any error here is a content bug
	bank, err := lessons.NewBank()
	if err != nil {
		log.Fatal("Failed to load lessons", "error", err)
	}
	renderer, err := render.New()
	if err != nil {
		log.Fatal("Failed to load templates", "error", err)
	}
	log.Info("Lessons loaded", "lessons", len(bank.Lessons()))

	store, err := service.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open snapshot store", "store", cfg.SnapshotStore, "error", err)
	}
	defer store.Close()

	m := metrics.New()

	// Sessions
	snapshots := service.NewSnapshotService(store, log, m)
	sessions := service.NewSessionRegistry(bank, quiz.NewEvaluator(), snapshots, m)

	// Speech
	speakers := audio.NewRegistry(speechConfig(cfg, log))

	// Security
	tokens := security.NewTokenIssuer(security.DeriveKey(cfg.AppSecret, security.PurposeLearnerToken), cfg.LearnerTokenTTL)
	csrf := security.NewCSRFGenerator(security.DeriveKey(cfg.AppSecret, security.PurposeCSRF))
	limiter := security.NewRateLimiter(cfg.SpeakRateLimit, cfg.SpeakRateWindow)
	go limiter.Run(ctx, time.Hour)

	// Handlers
	middleware := handlers.NewMiddleware(tokens, csrf, limiter, log, m)
	handler := handlers.NewRouter(handlers.RouterConfig{
		Middleware: middleware,
		Lessons:    handlers.NewLessonHandler(bank, renderer, sessions, middleware, cfg.Voices, log, m),
		Speech:     handlers.NewSpeechHandler(speakers, log, m),
		Health:     handlers.NewHealthHandler(map[string]handlers.HealthCheck{store.Kind: store.Ping}, log),
		Metrics:    m,
		Assets:     render.Assets(),
		StaticDir:  cfg.StaticFilesPath,
	})

	go janitor(ctx, sessions, speakers, cfg.SessionIdleTimeout, log)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", "http://localhost"+addr, "mode", cfg.Mode, "store", store.Kind)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	sessions.Flush(shutdownCtx)
	speakers.Evict(0)
	log.Info("Server stopped")
}

// speechConfig builds the speaker settings. With speech disabled the
// synthesizer stays nil and every speak request reports it is unavailable.
func speechConfig(cfg *config.Config, log *logger.Logger) audio.Config {
	voices := audio.VoicesFromTags(cfg.Voices)
	fallback := audio.Voice{Name: "google-en-us", Lang: "en-US"}
	sc := audio.Config{
		Voices:  voices,
		Default: audio.SelectVoice(voices, cfg.DefaultVoice, fallback),
		Options: audio.Options{Rate: cfg.SpeechRate, Pitch: cfg.SpeechPitch},
		Logger:  log,
	}
	if cfg.SpeechEnabled {
		sc.Synth = audio.NewGoogleTTS(cfg.AudioCachePath)
	}
	log.Info("Speech configured", "enabled", cfg.SpeechEnabled, "voices", len(voices), "default", sc.Default.Lang)
	return sc
}

// janitor periodically evicts idle sessions and speakers
func janitor(ctx context.Context, sessions *service.SessionRegistry, speakers *audio.Registry, idle time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Evict(ctx, idle); n > 0 {
				log.Debug("Evicted idle sessions", "count", n)
			}
			speakers.Evict(idle)
		}
	}
}
