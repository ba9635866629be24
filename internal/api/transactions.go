// Ledger endpoints.
//
// POST /api/transactions             — record a credit movement
// GET  /api/transactions             — filtered, paginated listing
// GET  /api/transactions/stats       — period aggregates
// GET  /api/transactions/{id}        — single entry
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greenloop-app/greenloop/internal/app/ledger"
	"github.com/greenloop-app/greenloop/internal/domain"
)

type createTransactionRequest struct {
	Type        domain.TransactionType     `json:"type"`
	Category    domain.TransactionCategory `json:"category"`
	Amount      int64                      `json:"amount"`
	Description string                     `json:"description"`
	Status      domain.TransactionStatus   `json:"status"`
	Metadata    map[string]string          `json:"metadata"`
}

// handleCreateTransaction records a ledger entry for the caller.
// POST /api/transactions → 201
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tx, err := s.ledger.Record(r.Context(), ledger.RecordInput{
		UserID:      UserID(r.Context()),
		Type:        req.Type,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      req.Status,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// handleListTransactions lists the caller's ledger, newest first.
// GET /api/transactions?type=&category=&status=&limit=&offset=&startDate=&endDate=
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.TransactionFilter{
		Type:     domain.TransactionType(q.Get("type")),
		Category: domain.TransactionCategory(q.Get("category")),
		Status:   domain.TransactionStatus(q.Get("status")),
	}

	var errs domain.FieldErrors
	f.Limit = intQuery(q.Get("limit"), 20, &errs, "limit")
	f.Offset = intQuery(q.Get("offset"), 0, &errs, "offset")
	f.Start = timeQuery(q.Get("startDate"), &errs, "startDate")
	f.End = timeQuery(q.Get("endDate"), &errs, "endDate")
	if !errs.Ok() {
		writeFieldErrors(w, errs)
		return
	}

	page, err := s.ledger.List(r.Context(), UserID(r.Context()), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleTransactionStats aggregates the caller's ledger.
// GET /api/transactions/stats?period=day|week|month|year|all
func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "all"
	}
	stats, err := s.ledger.Stats(r.Context(), UserID(r.Context()), period)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetTransaction returns one of the caller's ledger entries.
// GET /api/transactions/{id}
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tx.UserID != UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "transaction belongs to another user")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ─── Query Parsing ──────────────────────────────────────────────────────────

func intQuery(raw string, def int, errs *domain.FieldErrors, field string) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, domain.FieldError{Field: field, Reason: "must be an integer"})
		return def
	}
	return n
}

func timeQuery(raw string, errs *domain.FieldErrors, field string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Accept bare dates too.
		t, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		*errs = append(*errs, domain.FieldError{Field: field, Reason: "must be an ISO-8601 timestamp"})
		return time.Time{}
	}
	return t
}
