package lessons

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"sort"

	"englishdrills/internal/models"
)

//go:embed data/*.json
var lessonData embed.FS

// Filter narrows the questions returned by List. Empty fields match anything.
type Filter struct {
	Level    string
	Scenario string
	Section  string
}

func (f Filter) match(sectionID string, q models.Question) bool {
	if f.Section != "" && f.Section != sectionID {
		return false
	}
	if f.Level != "" && f.Level != q.Level {
		return false
	}
	if f.Scenario != "" && f.Scenario != q.Scenario {
		return false
	}
	return true
}

// Bank holds the loaded lessons. It is read-only after construction and safe
// for concurrent use.
type Bank struct {
	lessons []*models.Lesson
	byID    map[string]*models.Lesson
}

// NewBank loads the lessons embedded in the binary
func NewBank() (*Bank, error) {
	return LoadFS(lessonData, "data")
}

// LoadFS loads every *.json lesson in dir of fsys and validates it
func LoadFS(fsys fs.FS, dir string) (*Bank, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read lesson dir: %w", err)
	}

	b := &Bank{byID: make(map[string]*models.Lesson)}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var lesson models.Lesson
		if err := json.Unmarshal(data, &lesson); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if err := Validate(&lesson); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		if _, dup := b.byID[lesson.ID]; dup {
			return nil, fmt.Errorf("%s: %w: %q", entry.Name(), ErrDuplicateLesson, lesson.ID)
		}
		b.byID[lesson.ID] = &lesson
		b.lessons = append(b.lessons, &lesson)
	}

	sort.SliceStable(b.lessons, func(i, j int) bool {
		return b.lessons[i].Order < b.lessons[j].Order
	})
	return b, nil
}

// Lessons returns all lessons ordered by their Order field
func (b *Bank) Lessons() []*models.Lesson {
	return b.lessons
}

// Lesson returns the lesson with the given ID
func (b *Bank) Lesson(id string) (*models.Lesson, bool) {
	l, ok := b.byID[id]
	return l, ok
}

// List returns a lazy sequence of the lesson's questions matching filter.
// An unknown lesson or a filter with no matches yields an empty sequence.
// Each call builds a fresh sequence; changing the filter means calling List again.
func (b *Bank) List(lessonID string, filter Filter) iter.Seq[models.Question] {
	return func(yield func(models.Question) bool) {
		lesson, ok := b.byID[lessonID]
		if !ok {
			return
		}
		for _, s := range lesson.Sections {
			for _, q := range s.Questions {
				if !filter.match(s.ID, q) {
					continue
				}
				if !yield(q) {
					return
				}
			}
		}
	}
}

// Levels returns the distinct level tags used in a lesson, in first-seen order
func (b *Bank) Levels(lessonID string) []string {
	return b.distinct(lessonID, func(q models.Question) string { return q.Level })
}

// Scenarios returns the distinct scenario tags used in a lesson, in first-seen order
func (b *Bank) Scenarios(lessonID string) []string {
	return b.distinct(lessonID, func(q models.Question) string { return q.Scenario })
}

func (b *Bank) distinct(lessonID string, key func(models.Question) string) []string {
	seen := make(map[string]bool)
	var out []string
	for q := range b.List(lessonID, Filter{}) {
		k := key(q)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
