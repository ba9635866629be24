// User endpoints.
//
// GET    /api/users/me — profile, balance, cumulative stats
// DELETE /api/users/me — soft deactivation (accounts are never hard-deleted)
package api

import "net/http"

// handleMe returns the caller's profile.
// GET /api/users/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.db.GetUser(UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	height, err := s.ledger.BlockHeight(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":         u,
		"balance":      u.Balance,
		"stats":        u.Stats,
		"block_height": height,
	})
}

// handleDeactivate soft-deactivates the caller's account. The ledger
// history stays intact.
// DELETE /api/users/me
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := s.db.SetUserActive(UserID(r.Context()), false); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
