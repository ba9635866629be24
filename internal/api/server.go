// Package api provides the GreenLoop HTTP server: the JSON API for the
// ledger, rewards, tasks, and evidence surfaces, plus the live earnings
// WebSocket feed and the Prometheus endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenloop-app/greenloop/internal/app/ledger"
	"github.com/greenloop-app/greenloop/internal/app/rewards"
	"github.com/greenloop-app/greenloop/internal/app/tasks"
	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/evidence"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

// Server is the GreenLoop HTTP API server.
type Server struct {
	db       *sqlite.DB
	ledger   *ledger.Service
	rewards  *rewards.Service
	tasks    *tasks.Service
	evidence *evidence.Store
	hub      *LiveHub

	tokenTTL       time.Duration
	limiter        *tokenLimiter
	metricsEnabled bool
}

// NewServer creates an API server over the given services.
func NewServer(db *sqlite.DB, lg *ledger.Service, rw *rewards.Service, ts *tasks.Service, ev *evidence.Store) *Server {
	return &Server{
		db:       db,
		ledger:   lg,
		rewards:  rw,
		tasks:    ts,
		evidence: ev,
		hub:      NewLiveHub(),
		tokenTTL: 30 * 24 * time.Hour,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetTokenTTL overrides the bearer token lifetime.
func (s *Server) SetTokenTTL(ttl time.Duration) { s.tokenTTL = ttl }

// SetRateLimit enables the per-token rate limiter.
func (s *Server) SetRateLimit(rps float64, burst int) {
	s.limiter = newTokenLimiter(rps, burst)
}

// Hub returns the live earnings hub for wiring into the ledger.
func (s *Server) Hub() *LiveHub { return s.hub }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Everything below requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions", s.handleListTransactions)
			r.Get("/transactions/stats", s.handleTransactionStats)
			r.Get("/transactions/{id}", s.handleGetTransaction)

			r.Get("/rewards", s.handleListRewards)
			r.Post("/rewards/redeem", s.handleRedeem)

			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks", s.handleCreateTask)
			r.Post("/tasks/{id}/progress", s.handleTaskProgress)
			r.Post("/tasks/{id}/reset", s.handleTaskReset)

			r.Post("/photos", s.handleSubmitPhoto)
			r.Get("/photos", s.handleListPhotos)
			r.Post("/photos/{digest}/verify", s.handleVerifyPhoto)
			r.Post("/photos/{digest}/reject", s.handleRejectPhoto)

			r.Get("/users/me", s.handleMe)
			r.Delete("/users/me", s.handleDeactivate)

			r.Get("/live", s.hub.HandleLive)
		})
	})

	return r
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeFieldErrors writes a 400 with per-field detail.
func writeFieldErrors(w http.ResponseWriter, errs domain.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error": map[string]interface{}{
			"message": "validation failed",
			"type":    "validation_error",
			"fields":  errs,
		},
	})
}

// writeDomainError maps service errors to HTTP responses. Validation gets
// field detail, domain rules get a specific reason string, everything
// unclassified becomes a generic 500 that never leaks internals.
func writeDomainError(w http.ResponseWriter, err error) {
	var fieldErrs domain.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeFieldErrors(w, fieldErrs)
		return
	}

	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTxNotFound),
		errors.Is(err, domain.ErrVoucherNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrPhotoNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientCredits),
		errors.Is(err, domain.ErrVoucherInactive),
		errors.Is(err, domain.ErrVoucherNotStarted),
		errors.Is(err, domain.ErrVoucherExpired),
		errors.Is(err, domain.ErrVoucherExhausted),
		errors.Is(err, domain.ErrVoucherUserCap),
		errors.Is(err, domain.ErrTaskNotActive),
		errors.Is(err, domain.ErrTaskNotRecurring),
		errors.Is(err, domain.ErrTxTerminal),
		errors.Is(err, domain.ErrPhotoDuplicate),
		errors.Is(err, domain.ErrPhotoTerminal),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrUserInactive),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// corsMiddleware adds CORS headers for the mobile/web clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
