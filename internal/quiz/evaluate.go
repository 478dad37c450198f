package quiz

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"englishdrills/internal/models"
)

// Submission is what a learner sent for a question. Only the field
// matching the question kind is read.
type Submission struct {
	Index  int
	Text   string
	Tokens []string
}

// NoChoice marks a submission without an option index
const NoChoice = -1

// Verdict is the outcome of evaluating a submission
type Verdict struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
	// Answer is the canonical answer shown after a wrong attempt
	Answer string `json:"answer"`
}

// Strategy evaluates submissions for one question kind
type Strategy interface {
	Evaluate(q models.Question, s Submission) bool
	Answer(q models.Question) string
}

// Evaluator routes a question to the strategy registered for its kind.
// Evaluation is pure: the same question and submission always give the same verdict.
type Evaluator struct {
	strategies map[models.QuestionKind]Strategy
}

// NewEvaluator installs the built-in strategies
func NewEvaluator() *Evaluator {
	return &Evaluator{
		strategies: map[models.QuestionKind]Strategy{
			models.KindMultipleChoice: choiceStrategy{},
			models.KindFixIt:          &textStrategy{},
			models.KindWordOrder:      tokenStrategy{},
		},
	}
}

// Evaluate classifies a submission. Empty or mis-shaped submissions are
// incorrect, never an error.
func (e *Evaluator) Evaluate(q models.Question, s Submission) Verdict {
	st, ok := e.strategies[q.Kind]
	if !ok {
		return Verdict{Explanation: q.Explanation}
	}
	return e.Reveal(q, st.Evaluate(q, s))
}

// Reveal builds the feedback shown for an already classified answer
func (e *Evaluator) Reveal(q models.Question, correct bool) Verdict {
	v := Verdict{Correct: correct, Explanation: q.Explanation}
	if st, ok := e.strategies[q.Kind]; ok {
		v.Answer = st.Answer(q)
	}
	if !v.Correct && v.Explanation == "" && v.Answer != "" {
		v.Explanation = fmt.Sprintf("The correct answer is: %s", v.Answer)
	}
	return v
}

var defaultEvaluator = NewEvaluator()

// Evaluate classifies a submission with the built-in strategies
func Evaluate(q models.Question, s Submission) Verdict {
	return defaultEvaluator.Evaluate(q, s)
}

// Reveal builds feedback with the built-in strategies
func Reveal(q models.Question, correct bool) Verdict {
	return defaultEvaluator.Reveal(q, correct)
}

type choiceStrategy struct{}

func (choiceStrategy) Evaluate(q models.Question, s Submission) bool {
	if s.Index < 0 || s.Index >= len(q.Options) {
		return false
	}
	return s.Index == q.Correct
}

func (choiceStrategy) Answer(q models.Question) string {
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return ""
	}
	return q.Options[q.Correct]
}

// textStrategy compares free text against the expected answer and then
// against the optional alternate pattern, anchored to the whole answer
type textStrategy struct {
	patterns sync.Map // alternate source -> *regexp.Regexp
}

func (t *textStrategy) Evaluate(q models.Question, s Submission) bool {
	given := Normalize(s.Text)
	if given == "" {
		return false
	}
	if given == Normalize(q.Expected) {
		return true
	}
	if q.Alternate == "" {
		return false
	}
	re, err := t.compile(q.Alternate)
	if err != nil {
		return false
	}
	return re.MatchString(given)
}

func (t *textStrategy) Answer(q models.Question) string {
	return q.Expected
}

func (t *textStrategy) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := t.patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := CompileAlternate(pattern)
	if err != nil {
		return nil, err
	}
	t.patterns.Store(pattern, re)
	return re, nil
}

// CompileAlternate compiles a fix-it alternate pattern the way answers are
// matched against it: anchored to the whole normalized answer and
// case-insensitive
func CompileAlternate(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?i:` + pattern + `)$`)
}

// tokenStrategy compares the assembled sentence with the target sentence.
// Case and spacing are ignored but punctuation tokens must be placed.
type tokenStrategy struct{}

func (tokenStrategy) Evaluate(q models.Question, s Submission) bool {
	tokens := s.Tokens
	if len(tokens) == 0 {
		tokens = strings.Fields(s.Text)
	}
	if len(tokens) == 0 {
		return false
	}
	return fold(JoinTokens(tokens)) == fold(JoinTokens(q.Tokens))
}

func (tokenStrategy) Answer(q models.Question) string {
	return JoinTokens(q.Tokens)
}
