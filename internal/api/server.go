// Package api provides the lingoleap HTTP server.
// Every endpoint speaks JSON; learner endpoints require a bearer token.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lingoleap/lingoleap/internal/app/gems"
	"github.com/lingoleap/lingoleap/internal/app/learner"
	"github.com/lingoleap/lingoleap/internal/domain"
	"github.com/lingoleap/lingoleap/internal/health"
	"github.com/lingoleap/lingoleap/internal/infra/logger"
	"github.com/lingoleap/lingoleap/internal/infra/metrics"
)

// Server is the lingoleap HTTP API server.
type Server struct {
	learners       *learner.Service
	gems           *gems.Service
	health         *health.Checker
	log            *logger.Logger
	metricsEnabled bool
	corsOrigin     string
}

// NewServer creates a new API server. log may be nil.
func NewServer(learners *learner.Service, gemSvc *gems.Service, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{learners: learners, gems: gemSvc, log: log, corsOrigin: "*"}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches the health checker served at /health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// SetCORSOrigin sets the allowed CORS origin. Empty disables CORS headers.
func (s *Server) SetCORSOrigin(origin string) { s.corsOrigin = origin }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/health", s.handleHealth)
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Get("/level", s.handleLevel)
		r.Get("/languages", s.handleLanguages)
		r.Get("/leaderboard", s.handleLeaderboard)

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/me", s.handleMe)
			r.Delete("/account", s.handleDeleteAccount)
			r.Get("/dashboard", s.handleDashboard)

			r.Get("/hearts", s.handleHearts)
			r.Post("/hearts/lose", s.handleLoseHeart)
			r.Post("/shop/refill", s.handleRefill)

			r.Get("/lessons", s.handleLessons)
			r.Get("/lessons/{id}", s.handleOpenLesson)
			r.Post("/lessons/{id}/complete", s.handleCompleteLesson)

			r.Get("/achievements", s.handleAchievements)
			r.Get("/gems/history", s.handleGemHistory)
			r.Get("/gems/audit", s.handleGemAudit)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint", "not_found")
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// ─── Responses ──────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    kind,
		},
	})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "invalid_input":
		return http.StatusBadRequest
	case "insufficient_resource", "conflict":
		return http.StatusConflict
	case "unauthorized":
		return http.StatusUnauthorized
	case "forbidden":
		return http.StatusForbidden
	case "storage":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError classifies err and writes it. Storage and internal
// failures are logged and reported without driver detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.ErrorKind(err)
	status := statusFor(kind)
	msg := err.Error()
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		msg = "internal error, please retry"
		if errors.Is(err, domain.ErrStorage) {
			msg = "storage unavailable, nothing was changed"
		}
	}
	writeError(w, status, msg, kind)
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	return nil
}

// intParam reads an integer query parameter, returning def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidInput, errors.New(name+" must be an integer"))
	}
	return n, nil
}

// language reads the lang (or language) query parameter.
func language(r *http.Request) string {
	q := r.URL.Query()
	if l := q.Get("lang"); l != "" {
		return l
	}
	return q.Get("language")
}

// ─── Middleware ─────────────────────────────────────────────────────────────

// corsMiddleware adds CORS headers for browser clients.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware counts requests by route pattern and status code.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}
