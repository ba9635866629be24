package domain

import "time"

// ─── Credit Types ───────────────────────────────────────────────────────────
// These live in domain because they represent core business rules.
// The ledger service (internal/app/ledger) implements the movements.

// TransactionType represents the business reason for a credit movement.
type TransactionType string

const (
	TxSelfieCleanup     TransactionType = "selfie_cleanup"
	TxTaskCompletion    TransactionType = "task_completion"
	TxVoucherRedemption TransactionType = "voucher_redemption"
	TxCreditPurchase    TransactionType = "credit_purchase"
	TxBonusCredit       TransactionType = "bonus_credit"
	TxPenalty           TransactionType = "penalty"
	TxRefund            TransactionType = "refund"
	TxTransfer          TransactionType = "transfer"
)

// TransactionTypes lists every valid transaction type.
var TransactionTypes = []TransactionType{
	TxSelfieCleanup, TxTaskCompletion, TxVoucherRedemption, TxCreditPurchase,
	TxBonusCredit, TxPenalty, TxRefund, TxTransfer,
}

// TransactionCategory represents the accounting side of a credit movement.
type TransactionCategory string

const (
	CategoryEarning  TransactionCategory = "earning"
	CategorySpending TransactionCategory = "spending"
	CategoryBonus    TransactionCategory = "bonus"
	CategoryPenalty  TransactionCategory = "penalty"
)

// TransactionCategories lists every valid transaction category.
var TransactionCategories = []TransactionCategory{
	CategoryEarning, CategorySpending, CategoryBonus, CategoryPenalty,
}

// Credits returns true for categories that add to the balance.
func (c TransactionCategory) Credits() bool {
	return c == CategoryEarning || c == CategoryBonus
}

// Debits returns true for categories that subtract from the balance.
func (c TransactionCategory) Debits() bool {
	return c == CategorySpending || c == CategoryPenalty
}

// TransactionStatus is a transaction's lifecycle state.
// pending → confirmed | failed | cancelled; terminal states never transition.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxConfirmed TransactionStatus = "confirmed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s TransactionStatus) Terminal() bool {
	return s == TxConfirmed || s == TxFailed || s == TxCancelled
}

// Fees are the fee sub-fields attached to a transaction.
// Total is always Platform + Processing; the ledger sums it at record time.
type Fees struct {
	Platform   int64 `json:"platform"`
	Processing int64 `json:"processing"`
	Total      int64 `json:"total"`
}

// Transaction is a single row in the credit ledger.
// Immutable after creation except for status transitions.
type Transaction struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Type         TransactionType     `json:"type"`
	Category     TransactionCategory `json:"category"`
	Amount       int64               `json:"amount"`
	Description  string              `json:"description,omitempty"`
	Status       TransactionStatus   `json:"status"`
	Hash         string              `json:"hash"`
	PreviousHash string              `json:"previous_hash,omitempty"`
	BlockNumber  int64               `json:"block_number"`
	Nonce        string              `json:"nonce"`
	Fees         Fees                `json:"fees"`
	TaskID       string              `json:"task_id,omitempty"`
	PhotoID      string              `json:"photo_id,omitempty"`
	VoucherID    string              `json:"voucher_id,omitempty"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	ExpiresAt    time.Time           `json:"expires_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// BalanceEffect returns the signed delta this transaction applies to the
// owning user's balance when confirmed. Earning and bonus add the amount;
// spending and penalty subtract its absolute value.
func (t Transaction) BalanceEffect() int64 {
	switch {
	case t.Category.Credits():
		return t.Amount
	case t.Category.Debits():
		if t.Amount < 0 {
			return t.Amount
		}
		return -t.Amount
	default:
		return 0
	}
}

// Expired reports whether an unconfirmed entry has passed its expiry.
func (t Transaction) Expired(now time.Time) bool {
	return t.Status == TxPending && !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// ─── Ledger Queries ─────────────────────────────────────────────────────────

// TransactionFilter narrows a ledger listing. Zero values mean "any".
type TransactionFilter struct {
	Type     TransactionType
	Category TransactionCategory
	Status   TransactionStatus
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

// TransactionPage is one page of a ledger listing, newest first.
type TransactionPage struct {
	Items   []Transaction `json:"transactions"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"has_more"`
}

// LedgerStats aggregates a user's ledger over a period.
type LedgerStats struct {
	Period       string  `json:"period"`
	Count        int64   `json:"count"`
	Earned       int64   `json:"earned"`
	Spent        int64   `json:"spent"`
	Net          int64   `json:"net"`
	PendingCount int64   `json:"pending_count"`
	MeanAmount   float64 `json:"mean_amount"`
	StdDevAmount float64 `json:"stddev_amount"`
}
