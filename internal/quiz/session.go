package quiz

import (
	"slices"
	"sync"
	"time"

	"englishdrills/internal/models"
)

// LessonSession is one learner's state for one lesson: a Quiz per section,
// the overall aggregate, the last hint shown and the accent preference.
// All methods are safe for concurrent use.
type LessonSession struct {
	mu        sync.Mutex
	lessonID  string
	order     []string
	quizzes   map[string]*Quiz
	overall   *Overall
	streak    int
	hint      string
	hintsSeen []string
	accent    string
	touched   time.Time
}

// SectionStatus is a copy of one section's state, safe to read after the
// session lock is released
type SectionStatus struct {
	ID         string
	Score      models.ScoreState
	Answers    map[string]models.AnswerRecord
	Locked     map[string]bool
	AllowRetry bool
}

// NewLessonSession builds a session with one Quiz per lesson section
func NewLessonSession(lesson *models.Lesson, evaluator *Evaluator) *LessonSession {
	s := &LessonSession{
		lessonID:  lesson.ID,
		quizzes:   make(map[string]*Quiz, len(lesson.Sections)),
		overall:   NewOverall(),
		hintsSeen: []string{},
		accent:    lesson.Accent,
		touched:   time.Now(),
	}
	for _, sec := range lesson.Sections {
		q := NewQuiz(sec, evaluator)
		s.order = append(s.order, sec.ID)
		s.quizzes[sec.ID] = q
		s.overall.Add(sec.ID, q.Tracker())
	}
	return s
}

func (s *LessonSession) LessonID() string { return s.lessonID }

// Submit scores an attempt in a section
func (s *LessonSession) Submit(sectionID, questionID string, sub Submission) (Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	q, ok := s.quizzes[sectionID]
	if !ok {
		return Verdict{}, ErrUnknownSection
	}
	v, err := q.Submit(questionID, sub)
	if err != nil {
		return v, err
	}
	if v.Correct {
		s.streak++
	} else {
		s.streak = 0
	}
	return v, nil
}

// ResetSection clears one section's answers and score
func (s *LessonSession) ResetSection(sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	q, ok := s.quizzes[sectionID]
	if !ok {
		return ErrUnknownSection
	}
	q.Reset()
	s.streak = 0
	return nil
}

// ShowHint records that the hint of a question was shown and returns it
func (s *LessonSession) ShowHint(sectionID, questionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()

	q, ok := s.quizzes[sectionID]
	if !ok {
		return "", ErrUnknownSection
	}
	question, ok := q.Question(questionID)
	if !ok {
		return "", ErrUnknownQuestion
	}
	s.hint = question.Hint
	if !slices.Contains(s.hintsSeen, questionID) {
		s.hintsSeen = append(s.hintsSeen, questionID)
	}
	return question.Hint, nil
}

// Hint returns the last hint shown
func (s *LessonSession) Hint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hint
}

// Accent returns the learner's accent preference
func (s *LessonSession) Accent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accent
}

// SetAccent stores the learner's accent preference
func (s *LessonSession) SetAccent(accent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
	s.accent = accent
}

// Overall sums every section tracker. The streak is lesson-wide.
func (s *LessonSession) Overall() models.ScoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.overall.State()
	st.Streak = s.streak
	return st
}

// Sections returns the section IDs in lesson order
func (s *LessonSession) Sections() []string {
	return slices.Clone(s.order)
}

// Section returns a copy of a section's state
func (s *LessonSession) Section(sectionID string) (SectionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[sectionID]
	if !ok {
		return SectionStatus{}, false
	}
	st := SectionStatus{
		ID:         sectionID,
		Score:      q.Tracker().State(),
		Answers:    q.Answers(),
		Locked:     make(map[string]bool),
		AllowRetry: q.AllowRetry(),
	}
	for _, question := range q.Questions() {
		if q.Locked(question.ID) {
			st.Locked[question.ID] = true
		}
	}
	return st, true
}

// Touch marks the session as in use without changing it
func (s *LessonSession) Touch() {
	s.mu.Lock()
	s.touched = time.Now()
	s.mu.Unlock()
}

// IdleSince returns the time of the last mutation or Touch
func (s *LessonSession) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Snapshot captures the persisted subset of the session
func (s *LessonSession) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.overall.State()
	snap := models.SessionSnapshot{
		Score:     st.Correct,
		Total:     st.Total,
		Streak:    s.streak,
		Sections:  make(map[string]models.SectionSnapshot, len(s.quizzes)),
		Hint:      s.hint,
		HintsSeen: slices.Clone(s.hintsSeen),
		Accent:    s.accent,
	}
	for id, q := range s.quizzes {
		snap.Sections[id] = q.Snapshot()
	}
	return snap
}

// Restore replaces the session state with a persisted snapshot. Sections
// missing from the snapshot start empty; unknown ones are ignored. An empty
// accent keeps the lesson default.
func (s *LessonSession) Restore(snap models.SessionSnapshot) {
	snap = snap.WithDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, q := range s.quizzes {
		sec, ok := snap.Sections[id]
		if !ok {
			q.Reset()
			continue
		}
		q.Restore(sec)
	}
	s.streak = max(snap.Streak, 0)
	s.hint = snap.Hint
	s.hintsSeen = slices.Clone(snap.HintsSeen)
	if snap.Accent != "" {
		s.accent = snap.Accent
	}
}
