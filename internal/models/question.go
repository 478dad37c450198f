package models

// QuestionKind selects how a submission is evaluated
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindFixIt          QuestionKind = "fix_it"
	KindWordOrder      QuestionKind = "word_order"
)

// Valid reports whether k is a known question kind
func (k QuestionKind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindFixIt, KindWordOrder:
		return true
	}
	return false
}

// Question is a single exercise item. Questions are loaded once and never
// mutated during a session.
type Question struct {
	ID     string       `json:"id"`
	Kind   QuestionKind `json:"kind"`
	Prompt string       `json:"prompt"`

	// Multiple choice
	Options []string `json:"options,omitempty"`
	Correct int      `json:"correct,omitempty"`

	// Fix-it: one canonical answer plus an optional anchored regex alternate
	Expected  string `json:"expected,omitempty"`
	Alternate string `json:"alternate,omitempty"`

	// Word order target sequence
	Tokens []string `json:"tokens,omitempty"`

	Hint        string `json:"hint,omitempty"`
	Explanation string `json:"explanation,omitempty"`
	Level       string `json:"level,omitempty"`
	Scenario    string `json:"scenario,omitempty"`

	// SpeakText is read aloud by the speaker button; Prompt is used when empty
	SpeakText string `json:"speak_text,omitempty"`
}

// TextToSpeak returns the text the speaker button reads for this question
func (q Question) TextToSpeak() string {
	if q.SpeakText != "" {
		return q.SpeakText
	}
	return q.Prompt
}

// AnswerRecord is the verdict stored for a question once it has been answered
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
	// Chosen holds the submitted option index for multiple choice, -1 otherwise
	Chosen int `json:"chosen"`
	// Given holds the submitted text for fix-it and word order questions
	Given string `json:"given,omitempty"`
}
