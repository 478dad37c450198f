package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"englishdrills/internal/lessons"
	"englishdrills/internal/metrics"
	"englishdrills/internal/quiz"
)

// ErrUnknownLesson is returned for a lesson ID the bank does not hold
var ErrUnknownLesson = errors.New("unknown lesson")

type sessionKey struct {
	learnerID string
	lessonID  string
}

// SessionRegistry holds one LessonSession per learner and lesson, restoring
// it from the snapshot store the first time it is requested
type SessionRegistry struct {
	bank      *lessons.Bank
	evaluator *quiz.Evaluator
	snapshots *SnapshotService
	metrics   *metrics.Metrics

	mu       sync.Mutex
	sessions map[sessionKey]*quiz.LessonSession
}

func NewSessionRegistry(bank *lessons.Bank, evaluator *quiz.Evaluator, snapshots *SnapshotService, m *metrics.Metrics) *SessionRegistry {
	if snapshots == nil {
		snapshots = NewSnapshotService(nil, nil, m)
	}
	return &SessionRegistry{
		bank:      bank,
		evaluator: evaluator,
		snapshots: snapshots,
		metrics:   m,
		sessions:  make(map[sessionKey]*quiz.LessonSession),
	}
}

// Get returns the learner's session for a lesson
func (r *SessionRegistry) Get(ctx context.Context, learnerID, lessonID string) (*quiz.LessonSession, error) {
	key := sessionKey{learnerID: learnerID, lessonID: lessonID}

	r.mu.Lock()
	s, ok := r.sessions[key]
	if ok {
		s.Touch()
	}
	r.mu.Unlock()
	if ok {
		return s, nil
	}

	lesson, ok := r.bank.Lesson(lessonID)
	if !ok {
		return nil, ErrUnknownLesson
	}

	// Load outside the lock so a slow store does not block other learners
	fresh := quiz.NewLessonSession(lesson, r.evaluator)
	fresh.Restore(r.snapshots.Load(ctx, learnerID, lessonID))

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.Touch()
		return s, nil
	}
	r.sessions[key] = fresh
	r.metrics.SetActiveSessions(len(r.sessions))
	return fresh, nil
}

// Save persists the session's current state
func (r *SessionRegistry) Save(ctx context.Context, learnerID string, s *quiz.LessonSession) {
	r.snapshots.Save(ctx, learnerID, s.LessonID(), s.Snapshot())
}

// Evict saves and drops sessions idle for longer than idle. A session used
// while its final save runs stays registered.
func (r *SessionRegistry) Evict(ctx context.Context, idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	type candidate struct {
		key  sessionKey
		s    *quiz.LessonSession
		seen time.Time
	}
	r.mu.Lock()
	var stale []candidate
	for key, s := range r.sessions {
		if seen := s.IdleSince(); seen.Before(cutoff) {
			stale = append(stale, candidate{key: key, s: s, seen: seen})
		}
	}
	r.mu.Unlock()

	evicted := 0
	for _, c := range stale {
		r.Save(ctx, c.key.learnerID, c.s)

		r.mu.Lock()
		if r.sessions[c.key] == c.s && !c.s.IdleSince().After(c.seen) {
			delete(r.sessions, c.key)
			evicted++
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.metrics.SetActiveSessions(len(r.sessions))
	r.mu.Unlock()
	return evicted
}

// Flush saves every session still in memory, used on shutdown
func (r *SessionRegistry) Flush(ctx context.Context) {
	r.mu.Lock()
	all := make(map[sessionKey]*quiz.LessonSession, len(r.sessions))
	for key, s := range r.sessions {
		all[key] = s
	}
	r.mu.Unlock()

	for key, s := range all {
		r.Save(ctx, key.learnerID, s)
	}
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
