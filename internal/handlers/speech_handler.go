package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"englishdrills/internal/audio"
	"englishdrills/internal/logger"
	"englishdrills/internal/metrics"
)

// SpeechHandler serves synthesized audio for text on the page
type SpeechHandler struct {
	speakers *audio.Registry
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewSpeechHandler(speakers *audio.Registry, log *logger.Logger, m *metrics.Metrics) *SpeechHandler {
	return &SpeechHandler{speakers: speakers, log: log, metrics: m}
}

// Speak synthesizes text in the voice matching accent and returns the MP3.
// A newer request from the same learner cancels this one.
func (h *SpeechHandler) Speak(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	accent := r.URL.Query().Get("accent")

	if utf8.RuneCountInString(text) > maxSpeakTextLength {
		h.metrics.ObserveSpeech("rejected")
		http.Error(w, "Text too long", http.StatusRequestEntityTooLarge)
		return
	}

	path, err := h.speakers.Get(GetLearnerID(r.Context())).Speak(r.Context(), text, accent).Wait()
	switch {
	case errors.Is(err, audio.ErrEmptyText):
		h.metrics.ObserveSpeech("rejected")
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	case errors.Is(err, audio.ErrSpeechUnavailable):
		h.metrics.ObserveSpeech("unavailable")
		http.Error(w, "Speech is unavailable", http.StatusServiceUnavailable)
		return
	case errors.Is(err, context.Canceled):
		h.metrics.ObserveSpeech("cancelled")
		http.Error(w, "Superseded by a newer request", http.StatusConflict)
		return
	case err != nil:
		h.metrics.ObserveSpeech("error")
		respondWithError(w, h.log, http.StatusBadGateway, "Speech synthesis failed", "Synthesizing speech", err)
		return
	}

	h.metrics.ObserveSpeech("ok")
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, path)
}
