package audio

import (
	"sync"
	"time"
)

type speakerEntry struct {
	speaker  *Speaker
	lastUsed time.Time
}

// Registry keeps one Speaker per learner so a learner's new request
// cancels only their own previous one
type Registry struct {
	cfg  Config
	once *sync.Once

	mu       sync.Mutex
	speakers map[string]*speakerEntry
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		once:     &sync.Once{},
		speakers: make(map[string]*speakerEntry),
	}
}

// Get returns the learner's speaker, creating it on first use
func (r *Registry) Get(learnerID string) *Speaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.speakers[learnerID]
	if !ok {
		e = &speakerEntry{speaker: newSpeaker(r.cfg, r.once)}
		r.speakers[learnerID] = e
	}
	e.lastUsed = time.Now()
	return e.speaker
}

// Evict cancels and drops speakers unused for longer than idle
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	r.mu.Lock()
	var stale []*Speaker
	for id, e := range r.speakers {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.speaker)
			delete(r.speakers, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Cancel()
	}
	return len(stale)
}

// Len returns the number of live speakers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.speakers)
}
