// Evidence endpoints. Media blobs never transit this API; clients submit
// the SHA-256 digest of the file they captured and the store dedupes on it.
//
// POST /api/photos                  — submit evidence metadata
// GET  /api/photos                  — caller's evidence
// POST /api/photos/{digest}/verify  — approve, pays the cleanup reward
// POST /api/photos/{digest}/reject  — refuse, pays nothing
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/observability"
)

type submitPhotoRequest struct {
	Category  string  `json:"category"`
	Digest    string  `json:"digest"`
	SizeBytes int64   `json:"size_bytes"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// handleSubmitPhoto records new cleanup evidence for the caller.
// POST /api/photos → 201
func (s *Server) handleSubmitPhoto(w http.ResponseWriter, r *http.Request) {
	var req submitPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var errs domain.FieldErrors
	if len(req.Digest) != 64 {
		errs = append(errs, domain.FieldError{Field: "digest", Reason: "must be a hex SHA-256 digest"})
	}
	if req.Category == "" {
		errs = append(errs, domain.FieldError{Field: "category", Reason: "required"})
	}
	if !errs.Ok() {
		writeFieldErrors(w, errs)
		return
	}

	photo, err := s.evidence.Submit(UserID(r.Context()), req.Category, req.Digest, req.SizeBytes, req.Latitude, req.Longitude)
	if err != nil {
		observability.EvidenceSubmitted.WithLabelValues("rejected").Inc()
		writeDomainError(w, err)
		return
	}
	observability.EvidenceSubmitted.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusCreated, photo)
}

// handleListPhotos lists the caller's evidence.
// GET /api/photos
func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := s.evidence.ListByUser(UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"photos": photos,
		"count":  len(photos),
	})
}

// handleVerifyPhoto approves pending evidence. Verified selfie-cleanup
// evidence earns the configured reward through the ledger and bumps the
// submitter's cleanup counter. SetStatus refuses reviewed evidence, so the
// reward cannot be paid twice for one digest.
// POST /api/photos/{digest}/verify
func (s *Server) handleVerifyPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := s.evidence.SetStatus(chi.URLParam(r, "digest"), domain.PhotoVerified)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	tx, err := s.ledger.SelfieReward(r.Context(), photo.UserID, photo.ID)
	if err != nil {
		// Put the evidence back to pending so the reward is not stranded
		// behind a verified status it can never pay out for.
		if rerr := s.evidence.Reopen(photo.Digest); rerr != nil {
			log.Printf("[api] reopen evidence %s: %v", photo.Digest, rerr)
		}
		writeDomainError(w, err)
		return
	}
	if err := s.db.AddUserStats(photo.UserID, domain.UserStats{Cleanups: 1}); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"photo":       photo,
		"transaction": tx,
	})
}

// handleRejectPhoto refuses pending evidence.
// POST /api/photos/{digest}/reject
func (s *Server) handleRejectPhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := s.evidence.SetStatus(chi.URLParam(r, "digest"), domain.PhotoRejected)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, photo)
}
