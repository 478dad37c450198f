package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"englishdrills/internal/logger"
	"englishdrills/internal/metrics"
	"englishdrills/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const LearnerContextKey ContextKey = "learner"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.TokenIssuer
	csrf    *security.CSRFGenerator
	limiter *security.RateLimiter
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewMiddleware(tokens *security.TokenIssuer, csrf *security.CSRFGenerator, limiter *security.RateLimiter, log *logger.Logger, m *metrics.Metrics) *Middleware {
	return &Middleware{
		tokens:  tokens,
		csrf:    csrf,
		limiter: limiter,
		log:     log,
		metrics: m,
	}
}

// Learner attaches the learner ID from the signed cookie to the request
// context, issuing a new anonymous identity when the cookie is missing or
// invalid
func (m *Middleware) Learner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var learnerID string
		if cookie, err := r.Cookie(security.LearnerCookieName); err == nil {
			learnerID, err = m.tokens.Parse(cookie.Value)
			if err != nil {
				m.log.Debug("Replacing invalid learner token", "error", err)
			}
		}

		if learnerID == "" {
			learnerID = security.NewLearnerID()
			token, expires, err := m.tokens.Issue(learnerID)
			if err != nil {
				respondWithError(w, m.log, http.StatusInternalServerError, ErrInternalServerError, "Issuing learner token", err)
				return
			}
			http.SetCookie(w, security.CreateLearnerCookie(r, token, expires))
		}

		ctx := context.WithValue(r.Context(), LearnerContextKey, learnerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFProtect rejects requests without the learner's CSRF token in the
// X-CSRF-Token header or the csrf_token form field
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			if !parseForm(w, r, m.log, "Parsing form for CSRF token") {
				return
			}
			token = r.FormValue("csrf_token")
		}
		if !m.csrf.ValidateToken(GetLearnerID(r.Context()), token) {
			m.log.Warn("CSRF validation failed", "path", r.URL.Path, "ip", security.GetClientIP(r))
			http.Error(w, ErrForbidden, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// parseForm parses the request form with the body capped at maxFormBytes,
// writing the error response itself when parsing fails
func parseForm(w http.ResponseWriter, r *http.Request, log *logger.Logger, logMsg string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, log, http.StatusRequestEntityTooLarge, ErrRequestTooLarge, logMsg, err)
			return false
		}
		respondWithError(w, log, http.StatusBadRequest, ErrInvalidFormData, logMsg, err)
		return false
	}
	return true
}

// CSRFToken returns the token pages embed for the current learner
func (m *Middleware) CSRFToken(r *http.Request) string {
	token, err := m.csrf.GenerateToken(GetLearnerID(r.Context()))
	if err != nil {
		return ""
	}
	return token
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			m.metrics.ObserveRateLimited()
			w.Header().Set("Retry-After", "1")
			http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs each request with its status and duration
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.log.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// GetLearnerID retrieves the learner ID from the request context
func GetLearnerID(ctx context.Context) string {
	id, _ := ctx.Value(LearnerContextKey).(string)
	return id
}
