package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.
// The API layer maps each to a status code and a specific reason string.

var (
	// User errors
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrUserInactive        = errors.New("user is deactivated")
	ErrInsufficientCredits = errors.New("insufficient credits")

	// Ledger errors
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidCategory   = errors.New("invalid transaction category")
	ErrInvalidStatus     = errors.New("invalid status transition")
	ErrTxNotFound        = errors.New("transaction not found")
	ErrTxTerminal        = errors.New("transaction already in a terminal status")

	// Voucher errors: one per redemption precondition so callers can
	// render a specific message
	ErrVoucherNotFound   = errors.New("voucher not found")
	ErrVoucherInactive   = errors.New("voucher is not active")
	ErrVoucherNotStarted = errors.New("voucher is not yet valid")
	ErrVoucherExpired    = errors.New("voucher has expired")
	ErrVoucherExhausted  = errors.New("voucher supply exhausted")
	ErrVoucherUserCap    = errors.New("quantity exceeds per-user limit")

	// Task errors
	ErrTaskNotFound     = errors.New("task not found")
	ErrTaskNotActive    = errors.New("task is not active")
	ErrTaskNotRecurring = errors.New("only recurring tasks can be reset")

	// Evidence errors
	ErrPhotoNotFound  = errors.New("photo evidence not found")
	ErrPhotoDuplicate = errors.New("photo evidence already submitted")
	ErrPhotoTerminal  = errors.New("photo evidence already reviewed")
)
