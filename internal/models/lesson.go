package models

// Lesson is one self-contained page of exercises
type Lesson struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Topic       string    `json:"topic"`
	Order       int       `json:"order"`
	Accent      string    `json:"accent,omitempty"`
	Sections    []Section `json:"sections"`
}

// Section is a quiz block within a lesson with its own score partition
type Section struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Intro      string     `json:"intro,omitempty"`
	// AllowRetry lets fix-it questions accept further attempts until answered correctly
	AllowRetry bool       `json:"allow_retry,omitempty"`
	Questions  []Question `json:"questions"`
}

// QuestionCount returns the total number of questions across all sections
func (l *Lesson) QuestionCount() int {
	n := 0
	for _, s := range l.Sections {
		n += len(s.Questions)
	}
	return n
}

// Section returns the section with the given ID, or nil
func (l *Lesson) Section(id string) *Section {
	for i := range l.Sections {
		if l.Sections[i].ID == id {
			return &l.Sections[i]
		}
	}
	return nil
}
