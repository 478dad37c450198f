package lessons

import (
	"errors"
	"fmt"
	"strings"

	"englishdrills/internal/models"
	"englishdrills/internal/quiz"
)

var (
	ErrDuplicateLesson   = errors.New("duplicate lesson id")
	ErrDuplicateQuestion = errors.New("duplicate question id")
	ErrDuplicateSection  = errors.New("duplicate section id")
	ErrInvalidQuestion   = errors.New("invalid question")
)

// Validate checks a lesson's content so bad data fails at startup
// rather than as a broken control on the page
func Validate(l *models.Lesson) error {
	if strings.TrimSpace(l.ID) == "" {
		return errors.New("lesson id is required")
	}
	if len(l.Sections) == 0 {
		return fmt.Errorf("lesson %q has no sections", l.ID)
	}

	sections := make(map[string]bool)
	questions := make(map[string]bool)
	for _, s := range l.Sections {
		if s.ID == "" {
			return fmt.Errorf("lesson %q: section id is required", l.ID)
		}
		if sections[s.ID] {
			return fmt.Errorf("lesson %q: %w: %q", l.ID, ErrDuplicateSection, s.ID)
		}
		sections[s.ID] = true

		for _, q := range s.Questions {
			if questions[q.ID] {
				return fmt.Errorf("lesson %q: %w: %q", l.ID, ErrDuplicateQuestion, q.ID)
			}
			questions[q.ID] = true
			if err := validateQuestion(q); err != nil {
				return fmt.Errorf("lesson %q section %q: %w", l.ID, s.ID, err)
			}
		}
	}
	return nil
}

func validateQuestion(q models.Question) error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w %q: missing prompt", ErrInvalidQuestion, q.ID)
	}

	switch q.Kind {
	case models.KindMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w %q: needs at least two options", ErrInvalidQuestion, q.ID)
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return fmt.Errorf("%w %q: correct index %d out of range", ErrInvalidQuestion, q.ID, q.Correct)
		}
	case models.KindFixIt:
		if strings.TrimSpace(q.Expected) == "" {
			return fmt.Errorf("%w %q: missing expected answer", ErrInvalidQuestion, q.ID)
		}
		if quiz.Normalize(q.Expected) == "" {
			return fmt.Errorf("%w %q: expected answer %q is empty once normalized", ErrInvalidQuestion, q.ID, q.Expected)
		}
		if q.Alternate != "" {
			if _, err := quiz.CompileAlternate(q.Alternate); err != nil {
				return fmt.Errorf("%w %q: alternate pattern: %v", ErrInvalidQuestion, q.ID, err)
			}
		}
	case models.KindWordOrder:
		if len(q.Tokens) == 0 {
			return fmt.Errorf("%w %q: missing tokens", ErrInvalidQuestion, q.ID)
		}
	default:
		return fmt.Errorf("%w %q: unknown kind %q", ErrInvalidQuestion, q.ID, q.Kind)
	}
	return nil
}
