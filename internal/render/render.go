package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"englishdrills/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

// Template names every renderer must provide. A template set missing any
// of them is rejected by New.
const (
	TemplateLayout    = "layout"
	TemplateIndex     = "index"
	TemplateLesson    = "lesson"
	TemplateSection   = "section"
	TemplateQuestion  = "question"
	TemplateChoice    = "question_multiple_choice"
	TemplateFixIt     = "question_fix_it"
	TemplateWordOrder = "question_word_order"
	TemplateScore     = "score"
)

var requiredTemplates = []string{
	TemplateLayout,
	TemplateIndex,
	TemplateLesson,
	TemplateSection,
	TemplateQuestion,
	TemplateChoice,
	TemplateFixIt,
	TemplateWordOrder,
	TemplateScore,
}

// Renderer writes lesson pages and the fragments swapped in after each action.
// Every render produces the complete markup for its container, so rendering
// again replaces the previous state.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates
func New() (*Renderer, error) {
	return NewFromFS(templateFS, "templates/*.tmpl")
}

// NewFromFS parses templates matching pattern in fsys and checks that every
// required template is defined
func NewFromFS(fsys fs.FS, pattern string) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap()).ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	var missing []string
	for _, name := range requiredTemplates {
		if tmpl.Lookup(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingTemplate, strings.Join(missing, ", "))
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Assets returns the static files served alongside the pages
func Assets() fs.FS {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

func (r *Renderer) RenderIndex(w io.Writer, view IndexView) error {
	return r.tmpl.ExecuteTemplate(w, TemplateIndex, view)
}

func (r *Renderer) RenderLesson(w io.Writer, view LessonView) error {
	return r.tmpl.ExecuteTemplate(w, TemplateLesson, view)
}

// RenderSection writes the inner markup of a section container
func (r *Renderer) RenderSection(w io.Writer, view SectionView) error {
	return r.tmpl.ExecuteTemplate(w, TemplateSection, view)
}

// RenderQuestion writes the inner markup of a question container
func (r *Renderer) RenderQuestion(w io.Writer, view QuestionView) error {
	return r.tmpl.ExecuteTemplate(w, TemplateQuestion, view)
}

// RenderScore writes a score tally fragment
func (r *Renderer) RenderScore(w io.Writer, score models.ScoreState) error {
	return r.tmpl.ExecuteTemplate(w, TemplateScore, score)
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"percent": func(s models.ScoreState) int {
			return int(s.Accuracy() + 0.5)
		},
	}
}
