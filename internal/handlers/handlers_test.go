package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"englishdrills/internal/audio"
	"englishdrills/internal/lessons"
	"englishdrills/internal/logger"
	"englishdrills/internal/metrics"
	"englishdrills/internal/quiz"
	"englishdrills/internal/render"
	"englishdrills/internal/security"
	"englishdrills/internal/service"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type testServer struct {
	handler http.Handler
	metrics *metrics.Metrics
	cookies []*http.Cookie
	csrf    string
}

type fileSynth struct {
	dir string
}

func (f fileSynth) Synthesize(_ context.Context, text string, voice audio.Voice, _ audio.Options) (string, error) {
	path := filepath.Join(f.dir, "clip.mp3")
	return path, os.WriteFile(path, []byte("ID3"+voice.Lang+":"+text), 0o644)
}

type serverOptions struct {
	synth       audio.Synthesizer
	speakLimit  int
	healthCheck HealthCheck
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	bank, err := lessons.NewBank()
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	if opts.speakLimit == 0 {
		opts.speakLimit = 100
	}

	log := logger.NewNop()
	m := metrics.New()
	sessions := service.NewSessionRegistry(bank, quiz.NewEvaluator(), service.NewSnapshotService(nil, log, m), m)
	mw := NewMiddleware(
		security.NewTokenIssuer(security.DeriveKey("test", security.PurposeLearnerToken), time.Hour),
		security.NewCSRFGenerator(security.DeriveKey("test", security.PurposeCSRF)),
		security.NewRateLimiter(opts.speakLimit, time.Minute),
		log, m,
	)
	voices := audio.VoicesFromTags([]string{"en-US", "en-GB"})
	speakers := audio.NewRegistry(audio.Config{Synth: opts.synth, Voices: voices, Default: voices[0], Logger: log})

	checks := map[string]HealthCheck{}
	if opts.healthCheck != nil {
		checks["store"] = opts.healthCheck
	}

	return &testServer{
		metrics: m,
		handler: NewRouter(RouterConfig{
			Middleware: mw,
			Lessons:    NewLessonHandler(bank, renderer, sessions, mw, []string{"en-US", "en-GB"}, log, m),
			Speech:     NewSpeechHandler(speakers, log, m),
			Health:     NewHealthHandler(checks, log),
			Metrics:    m,
			Assets:     render.Assets(),
		}),
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return rec
}

func (s *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.csrf != "" {
		req.Header.Set("X-CSRF-Token", s.csrf)
	}
	return s.do(t, req)
}

var csrfMeta = regexp.MustCompile(`name="csrf-token" content="([0-9a-f]+)"`)

// visit loads a lesson page, picking up the learner cookie and CSRF token
func (s *testServer) visit(t *testing.T, lessonID string) string {
	t.Helper()
	rec := s.get(t, "/lessons/"+lessonID)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET lesson status = %d", rec.Code)
	}
	match := csrfMeta.FindStringSubmatch(rec.Body.String())
	if match == nil {
		t.Fatal("lesson page has no CSRF token")
	}
	s.csrf = match[1]
	return rec.Body.String()
}

func (s *testServer) score(t *testing.T, lessonID string) ScoreResponse {
	t.Helper()
	rec := s.get(t, "/lessons/"+lessonID+"/score")
	if rec.Code != http.StatusOK {
		t.Fatalf("score status = %d", rec.Code)
	}
	var resp ScoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("score body: %v", err)
	}
	return resp
}

func answer(section, question string, kv ...string) url.Values {
	form := url.Values{"action": {ActionAnswer}, "section": {section}, "question": {question}}
	for i := 0; i+1 < len(kv); i += 2 {
		form.Set(kv[i], kv[i+1])
	}
	return form
}

func TestIndexIssuesLearnerCookie(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	rec := srv.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `href="/lessons/present-simple"`) {
		t.Error("index should link to every lesson")
	}
	if len(srv.cookies) != 1 || srv.cookies[0].Name != security.LearnerCookieName {
		t.Fatalf("expected learner cookie, got %v", srv.cookies)
	}

	// A valid cookie is not replaced
	rec = srv.get(t, "/")
	if len(rec.Result().Cookies()) != 0 {
		t.Error("learner cookie reissued on second visit")
	}
}

func TestDispatchRequiresCSRF(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.visit(t, "present-simple")
	srv.csrf = "forged"

	rec := srv.post(t, "/lessons/present-simple/dispatch", answer("warmup", "ps-mc-1", "index", "1"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := srv.score(t, "present-simple").Overall.Total; got != 0 {
		t.Errorf("rejected request changed the score: total %d", got)
	}
}

func TestDispatchWrongChoiceThenLocked(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.visit(t, "present-simple")

	rec := srv.post(t, "/lessons/present-simple/dispatch", answer("warmup", "ps-mc-1", "index", "0"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`class="option wrong"`, `class="option correct"`, "Not quite.", "she goes"} {
		if !strings.Contains(body, want) {
			t.Errorf("fragment missing %q", want)
		}
	}

	// A second attempt on the locked question changes nothing
	rec = srv.post(t, "/lessons/present-simple/dispatch", answer("warmup", "ps-mc-1", "index", "1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("locked status = %d", rec.Code)
	}

	score := srv.score(t, "present-simple")
	if score.Overall.Total != 1 || score.Overall.Correct != 0 {
		t.Errorf("overall = %+v, want 0/1", score.Overall)
	}
	if score.Sections["warmup"].Total != 1 {
		t.Errorf("warmup = %+v", score.Sections["warmup"])
	}
}

func TestDispatchWordOrderAndFixIt(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.visit(t, "present-simple")

	rec := srv.post(t, "/lessons/present-simple/dispatch",
		answer("builder", "ps-wo-1", "tokens", `["I","like","cooking","."]`))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Correct!") {
		t.Fatalf("word order: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = srv.post(t, "/lessons/present-simple/dispatch",
		answer("fixit", "ps-fix-2", "text", "  my sister WORKS in a bank  "))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Correct!") {
		t.Fatalf("fix-it: status %d", rec.Code)
	}

	score := srv.score(t, "present-simple")
	if score.Overall.Correct != 2 || score.Overall.Total != 2 || score.Overall.Streak != 2 {
		t.Errorf("overall = %+v, want 2/2 streak 2", score.Overall)
	}

	html := srv.get(t, "/lessons/present-simple/score?format=html")
	if !strings.Contains(html.Body.String(), "2 / 2") {
		t.Errorf("score fragment = %q", html.Body.String())
	}
	if got := testutil.ToFloat64(srv.metrics.AnswersTotal.WithLabelValues("present-simple", "word_order", "correct")); got != 1 {
		t.Errorf("word order answers = %v, want 1", got)
	}
}

func TestDispatchHintAndReset(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.visit(t, "present-simple")

	form := url.Values{"action": {ActionHint}, "section": {"warmup"}, "question": {"ps-mc-1"}}
	rec := srv.post(t, "/lessons/present-simple/dispatch", form)
	if !strings.Contains(rec.Body.String(), `class="hint-text"`) {
		t.Error("hint fragment should show the hint under its question")
	}
	if page := srv.visit(t, "present-simple"); !strings.Contains(page, "Last hint:") {
		t.Error("lesson page should show the last hint")
	}

	srv.post(t, "/lessons/present-simple/dispatch", answer("warmup", "ps-mc-2", "index", "2"))
	rec = srv.post(t, "/lessons/present-simple/dispatch", url.Values{"action": {ActionReset}, "section": {"warmup"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disabled") {
		t.Error("reset section should have no disabled options")
	}
	if got := srv.score(t, "present-simple").Sections["warmup"]; got.Total != 0 {
		t.Errorf("warmup after reset = %+v", got)
	}
}

func TestDispatchFilterKeepsSelection(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.visit(t, "restaurant-dialogue")

	form := url.Values{"action": {ActionReset}, "section": {"phrases"}, "scenario": {"paying"}}
	body := srv.post(t, "/lessons/restaurant-dialogue/dispatch", form).Body.String()
	if !strings.Contains(body, `data-question="rd-mc-2"`) {
		t.Error("filtered section should contain the paying question")
	}
	if strings.Contains(body, `id="q-rd-mc-1"`) {
		t.Error("filtered section should not contain ordering questions")
	}
}

func TestDispatchErrors(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.visit(t, "present-simple")

	tests := []struct {
		name string
		path string
		form url.Values
		want int
	}{
		{"unknown lesson", "/lessons/nope/dispatch", answer("warmup", "ps-mc-1", "index", "1"), http.StatusNotFound},
		{"unknown section", "/lessons/present-simple/dispatch", answer("nope", "ps-mc-1", "index", "1"), http.StatusNotFound},
		{"unknown question", "/lessons/present-simple/dispatch", answer("warmup", "nope", "index", "1"), http.StatusNotFound},
		{"bad index", "/lessons/present-simple/dispatch", answer("warmup", "ps-mc-1", "index", "x"), http.StatusBadRequest},
		{"bad tokens", "/lessons/present-simple/dispatch", answer("builder", "ps-wo-1", "tokens", "[oops"), http.StatusBadRequest},
		{"unknown action", "/lessons/present-simple/dispatch", url.Values{"action": {"dance"}, "section": {"warmup"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := srv.post(t, tt.path, tt.form); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if rec := srv.get(t, "/lessons/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown lesson = %d", rec.Code)
	}
}

func TestDispatchBodyLimit(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.visit(t, "present-simple")
	token := srv.csrf

	big := answer("warmup", "ps-mc-1", "index", "1")
	big.Set("padding", strings.Repeat("x", maxFormBytes))

	// Without the header the token is read from the form, so the cap applies
	// before CSRF validation
	srv.csrf = ""
	big.Set("csrf_token", token)
	if rec := srv.post(t, "/lessons/present-simple/dispatch", big); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("form token, oversized body: status = %d, want 413", rec.Code)
	}

	srv.csrf = token
	if rec := srv.post(t, "/lessons/present-simple/dispatch", big); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("header token, oversized body: status = %d, want 413", rec.Code)
	}

	// A normal form carrying its token in a field still works
	srv.csrf = ""
	small := answer("warmup", "ps-mc-1", "index", "1")
	small.Set("csrf_token", token)
	if rec := srv.post(t, "/lessons/present-simple/dispatch", small); rec.Code != http.StatusOK {
		t.Errorf("form token: status = %d, want 200", rec.Code)
	}
	if got := srv.score(t, "present-simple").Overall.Total; got != 1 {
		t.Errorf("total = %d, want 1 (oversized requests must not score)", got)
	}
}

func TestSetAccent(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.visit(t, "present-simple")

	rec := srv.post(t, "/preferences/accent", url.Values{"accent": {"en-GB"}, "lesson": {"present-simple"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	if page := srv.visit(t, "present-simple"); !strings.Contains(page, `data-accent="en-GB"`) {
		t.Error("sections should carry the chosen accent")
	}

	rec = srv.post(t, "/preferences/accent", url.Values{"accent": {"xx-YY"}, "lesson": {"present-simple"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported accent status = %d", rec.Code)
	}
}

func TestSpeakUnavailable(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	rec := srv.get(t, "/api/speak?text=hello&accent=en-GB")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestSpeakServesAudio(t *testing.T) {
	srv := newTestServer(t, serverOptions{synth: fileSynth{dir: t.TempDir()}})

	rec := srv.get(t, "/api/speak?text=boarding+pass&accent=en_gb")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("Content-Type = %q", got)
	}
	if body := rec.Body.String(); body != "ID3en-GB:boarding pass" {
		t.Errorf("body = %q", body)
	}

	if rec := srv.get(t, "/api/speak?text=+"); rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d", rec.Code)
	}
	long := strings.Repeat("a", maxSpeakTextLength+1)
	if rec := srv.get(t, "/api/speak?text="+long); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("long text status = %d", rec.Code)
	}
}

func TestSpeakRateLimited(t *testing.T) {
	srv := newTestServer(t, serverOptions{speakLimit: 1})
	srv.get(t, "/api/speak?text=hi")
	if rec := srv.get(t, "/api/speak?text=hi"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	if rec := srv.get(t, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	failing := newTestServer(t, serverOptions{healthCheck: func(context.Context) error { return errors.New("down") }})
	rec := failing.get(t, "/healthz")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"store":"unavailable"`) {
		t.Errorf("failing check: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsAndAssets(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	srv.get(t, "/")

	rec := srv.get(t, "/metrics")
	if !strings.Contains(rec.Body.String(), `endpoint="GET /{$}"`) {
		t.Error("metrics should label requests by route pattern")
	}
	if rec := srv.get(t, "/assets/dispatch.js"); rec.Code != http.StatusOK {
		t.Errorf("asset status = %d", rec.Code)
	}
}
