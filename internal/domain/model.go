// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// ─── User ───────────────────────────────────────────────────────────────────

// UserStats holds a user's cumulative environmental counters.
type UserStats struct {
	Cleanups       int64 `json:"cleanups"`
	TasksCompleted int64 `json:"tasks_completed"`
	ItemsCollected int64 `json:"items_collected"`
	CO2SavedGrams  int64 `json:"co2_saved_grams"`
}

// User is a platform account. Users are never hard-deleted; deactivation
// flips Active and keeps the ledger history intact.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Balance      int64     `json:"balance"`
	Stats        UserStats `json:"stats"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ─── Task ───────────────────────────────────────────────────────────────────

// TaskStatus is a task's lifecycle state.
// active → completed | expired | cancelled; terminal states only reopen
// through an explicit Reset (recurring tasks).
type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
	TaskExpired   TaskStatus = "expired"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status admits no further progress.
func (s TaskStatus) Terminal() bool { return s != TaskActive }

// TaskReward is what completing a task pays out.
type TaskReward struct {
	Credits int64 `json:"credits"`
	XP      int64 `json:"xp"`
}

// Task is a goal with a numeric target. Current never exceeds Target;
// crossing the target flips status to completed and stamps CompletedAt.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category,omitempty"`
	Target      int64      `json:"target"`
	Current     int64      `json:"current"`
	Reward      TaskReward `json:"reward"`
	Status      TaskStatus `json:"status"`
	Recurring   bool       `json:"recurring"`
	CompletedAt time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProgressPct returns completion as a percentage in [0, 100].
func (t Task) ProgressPct() float64 {
	if t.Target <= 0 {
		return 0
	}
	pct := float64(t.Current) / float64(t.Target) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// ─── Voucher ────────────────────────────────────────────────────────────────

// Voucher is a redeemable offer consumable with credits.
// Used never exceeds Total when Total is set (nil = unlimited supply).
type Voucher struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Partner    string    `json:"partner,omitempty"`
	CostCredits int64    `json:"cost_credits"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Total      *int64    `json:"total,omitempty"`
	PerUserCap int64     `json:"per_user_cap"`
	Used       int64     `json:"used"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// InWindow reports whether now falls inside the validity window.
func (v Voucher) InWindow(now time.Time) bool {
	return !now.Before(v.StartDate) && !now.After(v.EndDate)
}

// Remaining returns how many redemptions are left, or -1 for unlimited.
func (v Voucher) Remaining() int64 {
	if v.Total == nil {
		return -1
	}
	r := *v.Total - v.Used
	if r < 0 {
		return 0
	}
	return r
}

// ─── Photo Evidence ─────────────────────────────────────────────────────────

// PhotoStatus is an evidence record's verification state.
type PhotoStatus string

const (
	PhotoPending  PhotoStatus = "pending"
	PhotoVerified PhotoStatus = "verified"
	PhotoRejected PhotoStatus = "rejected"
)

// Photo is cleanup evidence referenced by transactions as supporting
// metadata. It is not itself part of the ledger invariants.
type Photo struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Category  string      `json:"category"`
	Digest    string      `json:"digest"`
	SizeBytes int64       `json:"size_bytes"`
	Status    PhotoStatus `json:"status"`
	Latitude  float64     `json:"latitude,omitempty"`
	Longitude float64     `json:"longitude,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ─── Hashing ────────────────────────────────────────────────────────────────

// SHA256Hex computes SHA-256 and returns the hex string.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// TransactionHash computes the deterministic content hash of a ledger
// entry: a SHA-256 digest over the JSON-serialized tuple of user id, type,
// amount, timestamp, and nonce. Identical tuples always produce identical
// digests; a different nonce or timestamp produces a different digest.
func TransactionHash(userID string, txType TransactionType, amount int64, ts time.Time, nonce string) string {
	payload, _ := json.Marshal(struct {
		UserID    string          `json:"user_id"`
		Type      TransactionType `json:"type"`
		Amount    int64           `json:"amount"`
		Timestamp int64           `json:"timestamp"`
		Nonce     string          `json:"nonce"`
	}{
		UserID:    userID,
		Type:      txType,
		Amount:    amount,
		Timestamp: ts.UnixNano(),
		Nonce:     nonce,
	})
	return SHA256Hex(payload)
}
