// Rewards endpoints.
//
// GET  /api/rewards        — vouchers currently available
// POST /api/rewards/redeem — spend credits on a voucher
package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleListRewards lists redeemable vouchers.
// GET /api/rewards
func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	vouchers, err := s.rewards.Available(r.Context(), time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vouchers": vouchers,
		"count":    len(vouchers),
	})
}

type redeemRequest struct {
	VoucherID string `json:"voucher_id"`
	Quantity  int64  `json:"quantity"`
}

// handleRedeem redeems a voucher for the caller. Every failed precondition
// answers with its own reason string.
// POST /api/rewards/redeem
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := s.rewards.Redeem(r.Context(), UserID(r.Context()), req.VoucherID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
