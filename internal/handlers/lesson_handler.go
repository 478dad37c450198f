package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"englishdrills/internal/lessons"
	"englishdrills/internal/logger"
	"englishdrills/internal/metrics"
	"englishdrills/internal/models"
	"englishdrills/internal/quiz"
	"englishdrills/internal/render"
	"englishdrills/internal/service"
)

// Dispatch actions posted by the delegated listener
const (
	ActionAnswer = "answer"
	ActionReset  = "reset"
	ActionHint   = "hint"
)

// LessonHandler serves lesson pages and the single dispatch endpoint every
// in-page control posts to
type LessonHandler struct {
	bank       *lessons.Bank
	renderer   *render.Renderer
	sessions   *service.SessionRegistry
	middleware *Middleware
	accents    []string
	log        *logger.Logger
	metrics    *metrics.Metrics
}

func NewLessonHandler(bank *lessons.Bank, renderer *render.Renderer, sessions *service.SessionRegistry, middleware *Middleware, accents []string, log *logger.Logger, m *metrics.Metrics) *LessonHandler {
	return &LessonHandler{
		bank:       bank,
		renderer:   renderer,
		sessions:   sessions,
		middleware: middleware,
		accents:    accents,
		log:        log,
		metrics:    m,
	}
}

// ScoreResponse is the JSON body of the score endpoint
type ScoreResponse struct {
	LessonID string                       `json:"lesson_id"`
	Overall  models.ScoreState            `json:"overall"`
	Sections map[string]models.ScoreState `json:"sections"`
}

// Index lists the lessons
func (h *LessonHandler) Index(w http.ResponseWriter, r *http.Request) {
	view := render.IndexView{
		Lessons:   h.bank.Lessons(),
		CSRFToken: h.middleware.CSRFToken(r),
	}
	h.write(w, "text/html; charset=utf-8", func(buf *bytes.Buffer) error {
		return h.renderer.RenderIndex(buf, view)
	})
}

// ShowLesson renders a lesson page, optionally filtered by level and scenario
func (h *LessonHandler) ShowLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := r.PathValue("lessonID")
	session, lesson, ok := h.session(w, r, lessonID)
	if !ok {
		return
	}

	filter := lessons.Filter{
		Level:    r.URL.Query().Get("level"),
		Scenario: r.URL.Query().Get("scenario"),
	}

	view := render.LessonView{
		Lesson:    lesson,
		Overall:   session.Overall(),
		Levels:    h.bank.Levels(lessonID),
		Scenarios: h.bank.Scenarios(lessonID),
		Level:     filter.Level,
		Scenario:  filter.Scenario,
		Accent:    session.Accent(),
		Accents:   h.accentChoices(session.Accent()),
		Hint:      session.Hint(),
		CSRFToken: h.middleware.CSRFToken(r),
	}
	for _, sec := range lesson.Sections {
		view.Sections = append(view.Sections, h.sectionView(lessonID, sec, session, filter, ""))
	}

	h.write(w, "text/html; charset=utf-8", func(buf *bytes.Buffer) error {
		return h.renderer.RenderLesson(buf, view)
	})
}

// Dispatch applies one section action and returns the section markup
func (h *LessonHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r, h.log, "Parsing dispatch form") {
		return
	}

	lessonID := r.PathValue("lessonID")
	session, lesson, ok := h.session(w, r, lessonID)
	if !ok {
		return
	}

	sectionID := r.PostFormValue("section")
	section := lesson.Section(sectionID)
	if section == nil {
		respondWithError(w, h.log, http.StatusNotFound, ErrNotFound, "Unknown section", quiz.ErrUnknownSection)
		return
	}
	questionID := r.PostFormValue("question")

	var hintFor string
	switch action := r.PostFormValue("action"); action {
	case ActionAnswer:
		sub, err := parseSubmission(r)
		if err != nil {
			respondWithError(w, h.log, http.StatusBadRequest, ErrInvalidFormData, "Parsing submission", err)
			return
		}
		v, err := session.Submit(sectionID, questionID, sub)
		switch {
		case errors.Is(err, quiz.ErrQuestionLocked):
			// Locked questions ignore the attempt; the client gets the current markup
			h.log.Debug("Ignoring answer to locked question", "lesson", lessonID, "question", questionID)
		case err != nil:
			respondWithError(w, h.log, http.StatusNotFound, ErrNotFound, "Submitting answer", err)
			return
		default:
			if q, ok := findQuestion(section, questionID); ok {
				h.metrics.ObserveAnswer(lessonID, string(q.Kind), v.Correct)
			}
		}
	case ActionReset:
		if err := session.ResetSection(sectionID); err != nil {
			respondWithError(w, h.log, http.StatusNotFound, ErrNotFound, "Resetting section", err)
			return
		}
	case ActionHint:
		if _, err := session.ShowHint(sectionID, questionID); err != nil {
			respondWithError(w, h.log, http.StatusNotFound, ErrNotFound, "Showing hint", err)
			return
		}
		hintFor = questionID
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	h.sessions.Save(r.Context(), GetLearnerID(r.Context()), session)

	filter := lessons.Filter{Level: r.PostFormValue("level"), Scenario: r.PostFormValue("scenario")}
	view := h.sectionView(lessonID, *section, session, filter, hintFor)
	h.write(w, "text/html; charset=utf-8", func(buf *bytes.Buffer) error {
		return h.renderer.RenderSection(buf, view)
	})
}

// Score returns the overall and per-section scores as JSON, or the overall
// tally fragment with format=html
func (h *LessonHandler) Score(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.session(w, r, r.PathValue("lessonID"))
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == "html" {
		overall := session.Overall()
		h.write(w, "text/html; charset=utf-8", func(buf *bytes.Buffer) error {
			return h.renderer.RenderScore(buf, overall)
		})
		return
	}

	resp := ScoreResponse{
		LessonID: session.LessonID(),
		Overall:  session.Overall(),
		Sections: make(map[string]models.ScoreState),
	}
	for _, id := range session.Sections() {
		if st, ok := session.Section(id); ok {
			resp.Sections[id] = st.Score
		}
	}
	h.write(w, "application/json", func(buf *bytes.Buffer) error {
		return json.NewEncoder(buf).Encode(resp)
	})
}

// SetAccent stores the learner's accent preference for a lesson
func (h *LessonHandler) SetAccent(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r, h.log, "Parsing accent form") {
		return
	}

	accent := r.PostFormValue("accent")
	if len(h.accents) > 0 && !slices.Contains(h.accents, accent) {
		http.Error(w, "Unsupported accent", http.StatusBadRequest)
		return
	}

	lessonID := r.PostFormValue("lesson")
	session, _, ok := h.session(w, r, lessonID)
	if !ok {
		return
	}
	session.SetAccent(accent)
	h.sessions.Save(r.Context(), GetLearnerID(r.Context()), session)

	http.Redirect(w, r, "/lessons/"+lessonID, http.StatusSeeOther)
}

func (h *LessonHandler) session(w http.ResponseWriter, r *http.Request, lessonID string) (*quiz.LessonSession, *models.Lesson, bool) {
	lesson, ok := h.bank.Lesson(lessonID)
	if !ok {
		http.Error(w, "Lesson not found", http.StatusNotFound)
		return nil, nil, false
	}
	session, err := h.sessions.Get(r.Context(), GetLearnerID(r.Context()), lessonID)
	if err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "Loading lesson session", err)
		return nil, nil, false
	}
	return session, lesson, true
}

func (h *LessonHandler) sectionView(lessonID string, sec models.Section, session *quiz.LessonSession, filter lessons.Filter, hintFor string) render.SectionView {
	filter.Section = sec.ID
	questions := slices.Collect(h.bank.List(lessonID, filter))
	status, _ := session.Section(sec.ID)
	return render.NewSectionView(lessonID, sec, questions, status, hintFor, session.Hint())
}

// accentChoices lists the configured accents, making sure the current one
// is selectable
func (h *LessonHandler) accentChoices(current string) []string {
	if current == "" || slices.Contains(h.accents, current) {
		return h.accents
	}
	return append(slices.Clone(h.accents), current)
}

// write renders fully into a buffer before sending anything
func (h *LessonHandler) write(w http.ResponseWriter, contentType string, fn func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		respondWithError(w, h.log, http.StatusInternalServerError, ErrInternalServerError, "Rendering response", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(buf.Bytes())
}

func parseSubmission(r *http.Request) (quiz.Submission, error) {
	sub := quiz.Submission{Index: quiz.NoChoice, Text: r.PostFormValue("text")}
	if raw := r.PostFormValue("index"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return sub, err
		}
		sub.Index = idx
	}
	if raw := r.PostFormValue("tokens"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sub.Tokens); err != nil {
			return sub, err
		}
	}
	return sub, nil
}

func findQuestion(section *models.Section, id string) (models.Question, bool) {
	for _, q := range section.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}
