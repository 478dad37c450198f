package audio

import (
	"context"
	"errors"
	"strings"
	"sync"

	"englishdrills/internal/logger"
)

var (
	ErrSpeechUnavailable = errors.New("speech synthesis unavailable")
	ErrEmptyText         = errors.New("nothing to speak")
)

// Utterance is one Speak call. It finishes when synthesis completes, fails
// or is superseded by a later Speak on the same Speaker.
type Utterance struct {
	Text   string
	Voice  Voice
	done   chan struct{}
	cancel context.CancelFunc
	path   string
	err    error
}

func finished(text string, voice Voice, err error) *Utterance {
	u := &Utterance{Text: text, Voice: voice, done: make(chan struct{}), cancel: func() {}, err: err}
	close(u.done)
	return u
}

// Done is closed once the utterance has finished
func (u *Utterance) Done() <-chan struct{} {
	return u.done
}

// Wait blocks until the utterance finishes and returns the audio file path
func (u *Utterance) Wait() (string, error) {
	<-u.done
	return u.path, u.err
}

// Cancel stops the utterance if it is still running
func (u *Utterance) Cancel() {
	u.cancel()
}

// Config configures a Speaker
type Config struct {
	Synth   Synthesizer
	Voices  []Voice
	Default Voice
	Options Options
	Logger  *logger.Logger
}

// Speaker reads text aloud with at most one utterance in flight. Each Speak
// cancels the previous utterance and waits for it to stop before starting.
type Speaker struct {
	cfg         Config
	unavailable *sync.Once

	mu      sync.Mutex
	current *Utterance
}

// NewSpeaker creates a speaker. A nil Synth yields a speaker whose
// utterances all finish with ErrSpeechUnavailable.
func NewSpeaker(cfg Config) *Speaker {
	return newSpeaker(cfg, &sync.Once{})
}

func newSpeaker(cfg Config, once *sync.Once) *Speaker {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Speaker{cfg: cfg, unavailable: once}
}

// Available reports whether the speaker can synthesize speech
func (s *Speaker) Available() bool {
	return s.cfg.Synth != nil
}

// Speak starts reading text in the voice chosen for accent. It never fails;
// problems are logged and reported on the returned Utterance.
func (s *Speaker) Speak(ctx context.Context, text, accent string) *Utterance {
	voice := SelectVoice(s.cfg.Voices, accent, s.cfg.Default)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev := s.current; prev != nil {
		prev.cancel()
		<-prev.done
		s.current = nil
	}

	if !s.Available() {
		s.unavailable.Do(func() {
			s.cfg.Logger.Warn("Speech synthesis is unavailable, speak requests will be ignored")
		})
		return finished(text, voice, ErrSpeechUnavailable)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return finished(text, voice, ErrEmptyText)
	}

	uctx, cancel := context.WithCancel(ctx)
	u := &Utterance{Text: text, Voice: voice, done: make(chan struct{}), cancel: cancel}
	s.current = u

	go func() {
		defer close(u.done)
		defer cancel()
		path, err := s.cfg.Synth.Synthesize(uctx, text, voice, s.cfg.Options)
		if err != nil {
			if uctx.Err() != nil {
				err = context.Cause(uctx)
			} else {
				s.cfg.Logger.Warn("Speech synthesis failed", "voice", voice.Lang, "error", err)
			}
		}
		u.path, u.err = path, err
	}()
	return u
}

// Cancel stops any utterance in flight
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.cancel()
		<-s.current.done
		s.current = nil
	}
}
