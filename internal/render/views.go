package render

import (
	"hash/fnv"
	"math/rand/v2"
	"slices"

	"englishdrills/internal/models"
	"englishdrills/internal/quiz"
)

// OptionState is the visual state of a multiple choice option
type OptionState string

const (
	OptionEnabled  OptionState = "enabled"
	OptionCorrect  OptionState = "correct"
	OptionWrong    OptionState = "wrong"
	OptionDisabled OptionState = "disabled"
)

// OptionView is one multiple choice button
type OptionView struct {
	Index int
	Text  string
	State OptionState
}

// Disabled reports whether the button should refuse clicks
func (o OptionView) Disabled() bool {
	return o.State != OptionEnabled
}

// QuestionView carries everything a question fragment needs
type QuestionView struct {
	LessonID  string
	SectionID string
	Question  models.Question
	Kind      string
	Options   []OptionView
	// Chips are the word order tokens in display order
	Chips    []string
	Answered bool
	Locked   bool
	Given    string
	Verdict  *quiz.Verdict
	Hint     string
}

// SectionView carries a section fragment: its questions and its score
type SectionView struct {
	LessonID   string
	ID         string
	Title      string
	Intro      string
	AllowRetry bool
	Score      models.ScoreState
	Questions  []QuestionView
}

// Empty reports whether the section has nothing to show
func (s SectionView) Empty() bool {
	return len(s.Questions) == 0
}

// LessonView is a full lesson page
type LessonView struct {
	Lesson    *models.Lesson
	Sections  []SectionView
	Overall   models.ScoreState
	Levels    []string
	Scenarios []string
	Level     string
	Scenario  string
	Accent    string
	Accents   []string
	Hint      string
	CSRFToken string
}

// IndexView lists the available lessons
type IndexView struct {
	Lessons   []*models.Lesson
	CSRFToken string
}

// Head is the data the page layout needs
type Head struct {
	Title     string
	CSRFToken string
}

func (v IndexView) Head() Head {
	return Head{Title: "Lessons", CSRFToken: v.CSRFToken}
}

func (v LessonView) Head() Head {
	return Head{Title: v.Lesson.Title, CSRFToken: v.CSRFToken}
}

// NewSectionView builds the view of a section from the questions to show
// and a copy of the section's state. hint, when set, is shown under the
// question it belongs to.
func NewSectionView(lessonID string, section models.Section, questions []models.Question, status quiz.SectionStatus, hintFor, hint string) SectionView {
	view := SectionView{
		LessonID:   lessonID,
		ID:         section.ID,
		Title:      section.Title,
		Intro:      section.Intro,
		AllowRetry: section.AllowRetry,
		Score:      status.Score,
		Questions:  make([]QuestionView, 0, len(questions)),
	}
	for _, q := range questions {
		qv := NewQuestionView(lessonID, section.ID, q, status)
		if q.ID == hintFor {
			qv.Hint = hint
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

// NewQuestionView builds the view of one question. Answered multiple
// choice questions mark the chosen wrong option, reveal the correct one and
// disable the rest.
func NewQuestionView(lessonID, sectionID string, q models.Question, status quiz.SectionStatus) QuestionView {
	rec, answered := status.Answers[q.ID]
	qv := QuestionView{
		LessonID:  lessonID,
		SectionID: sectionID,
		Question:  q,
		Kind:      string(q.Kind),
		Answered:  answered,
		Locked:    status.Locked[q.ID],
	}
	if answered {
		v := quiz.Reveal(q, rec.Correct)
		qv.Verdict = &v
		qv.Given = rec.Given
	}

	switch q.Kind {
	case models.KindMultipleChoice:
		qv.Options = make([]OptionView, len(q.Options))
		for i, text := range q.Options {
			qv.Options[i] = OptionView{Index: i, Text: text, State: optionState(i, q.Correct, rec, answered)}
		}
	case models.KindWordOrder:
		qv.Chips = Scramble(q.ID, q.Tokens)
	}
	return qv
}

func optionState(i, correct int, rec models.AnswerRecord, answered bool) OptionState {
	switch {
	case !answered:
		return OptionEnabled
	case i == correct:
		return OptionCorrect
	case i == rec.Chosen:
		return OptionWrong
	default:
		return OptionDisabled
	}
}

// Scramble returns the tokens in a stable order derived from the question
// ID, so every render of the same question shows the same chips. A
// scramble that happens to equal the answer is rotated by one.
func Scramble(questionID string, tokens []string) []string {
	out := slices.Clone(tokens)
	if len(out) < 2 {
		return out
	}
	h := fnv.New64a()
	h.Write([]byte(questionID))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if slices.Equal(out, tokens) {
		out = append(out[1:], out[0])
	}
	return out
}
