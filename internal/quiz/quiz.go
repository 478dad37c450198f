package quiz

import (
	"errors"
	"maps"

	"englishdrills/internal/models"
)

var (
	ErrQuestionLocked  = errors.New("question already answered")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrUnknownSection  = errors.New("unknown section")
)

// Quiz runs one section: it evaluates submissions, feeds its tracker and
// locks answered questions. Multiple choice and word order questions lock
// after one attempt. Fix-it questions lock once correct, or after the first
// attempt when retries are not allowed.
type Quiz struct {
	id         string
	questions  []models.Question
	index      map[string]int
	allowRetry bool
	evaluator  *Evaluator
	tracker    *Tracker
	answers    map[string]models.AnswerRecord
	locked     map[string]bool
}

// NewQuiz builds a quiz for a section's questions
func NewQuiz(section models.Section, evaluator *Evaluator) *Quiz {
	if evaluator == nil {
		evaluator = defaultEvaluator
	}
	q := &Quiz{
		id:         section.ID,
		questions:  section.Questions,
		index:      make(map[string]int, len(section.Questions)),
		allowRetry: section.AllowRetry,
		evaluator:  evaluator,
		tracker:    &Tracker{},
		answers:    make(map[string]models.AnswerRecord),
		locked:     make(map[string]bool),
	}
	for i, question := range section.Questions {
		q.index[question.ID] = i
	}
	return q
}

func (q *Quiz) ID() string {
	return q.id
}

func (q *Quiz) Questions() []models.Question {
	return q.questions
}

func (q *Quiz) Tracker() *Tracker {
	return q.tracker
}

func (q *Quiz) AllowRetry() bool {
	return q.allowRetry
}

// Question looks up a question by ID
func (q *Quiz) Question(id string) (models.Question, bool) {
	i, ok := q.index[id]
	if !ok {
		return models.Question{}, false
	}
	return q.questions[i], true
}

// Submit evaluates and scores one attempt. Every accepted attempt counts
// toward the section total. A locked question returns ErrQuestionLocked and
// leaves all state untouched.
func (q *Quiz) Submit(questionID string, s Submission) (Verdict, error) {
	question, ok := q.Question(questionID)
	if !ok {
		return Verdict{}, ErrUnknownQuestion
	}
	if q.locked[questionID] {
		return Verdict{}, ErrQuestionLocked
	}

	v := q.evaluator.Evaluate(question, s)
	q.tracker.Record(v.Correct)

	rec := models.AnswerRecord{QuestionID: questionID, Correct: v.Correct, Chosen: NoChoice}
	switch question.Kind {
	case models.KindMultipleChoice:
		rec.Chosen = s.Index
	case models.KindWordOrder:
		if len(s.Tokens) > 0 {
			rec.Given = JoinTokens(s.Tokens)
		} else {
			rec.Given = s.Text
		}
	default:
		rec.Given = s.Text
	}
	q.answers[questionID] = rec
	q.locked[questionID] = q.locksAfter(question, v.Correct)
	return v, nil
}

func (q *Quiz) locksAfter(question models.Question, correct bool) bool {
	if question.Kind != models.KindFixIt {
		return true
	}
	return correct || !q.allowRetry
}

// Answer returns the latest record for a question; ok is false when unanswered
func (q *Quiz) Answer(questionID string) (models.AnswerRecord, bool) {
	rec, ok := q.answers[questionID]
	return rec, ok
}

// Locked reports whether further submissions for the question are refused
func (q *Quiz) Locked(questionID string) bool {
	return q.locked[questionID]
}

// Answers returns a copy of all answer records
func (q *Quiz) Answers() map[string]models.AnswerRecord {
	return maps.Clone(q.answers)
}

// Reset clears every answer, lock and the tracker
func (q *Quiz) Reset() {
	clear(q.answers)
	clear(q.locked)
	q.tracker.Reset()
}

// Snapshot captures the section state for persistence
func (q *Quiz) Snapshot() models.SectionSnapshot {
	st := q.tracker.State()
	snap := models.SectionSnapshot{
		Correct: st.Correct,
		Total:   st.Total,
		Streak:  st.Streak,
		Solved:  make(map[string]bool, len(q.answers)),
		Answers: maps.Clone(q.answers),
	}
	for id, rec := range q.answers {
		snap.Solved[id] = rec.Correct
	}
	return snap
}

// Restore replaces the section state with a persisted one. Records for
// questions no longer in the section are dropped.
func (q *Quiz) Restore(snap models.SectionSnapshot) {
	q.Reset()
	q.tracker.restore(models.ScoreState{Correct: snap.Correct, Total: snap.Total, Streak: snap.Streak})

	for id, correct := range snap.Solved {
		question, ok := q.Question(id)
		if !ok {
			continue
		}
		rec, ok := snap.Answers[id]
		if !ok {
			rec = models.AnswerRecord{QuestionID: id, Chosen: NoChoice}
		}
		rec.QuestionID = id
		rec.Correct = correct
		q.answers[id] = rec
		q.locked[id] = q.locksAfter(question, correct)
	}
}
