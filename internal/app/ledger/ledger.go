// Package ledger implements the credit ledger service: hash-stamped,
// block-numbered transaction records and the balance mutations they drive.
//
// Write path:
//  1. Validate type/category/amount (rejected before any persistence).
//  2. Stamp nonce, content hash, fee total, expiry for pending entries.
//  3. Under a single-writer lock, persist in one storage transaction:
//     block number assignment, the insert, and (for confirmed entries)
//     the balance effect. The read-then-increment block race and the
//     read-then-write balance race are both closed here.
package ledger

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/observability"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

// Broadcaster receives confirmed earning events for the live feed.
type Broadcaster interface {
	BroadcastEarning(userID string, amount int64, txType domain.TransactionType)
}

// Config controls ledger behavior.
type Config struct {
	WelcomeGrant int64         // Credits granted at registration (default: 100)
	SelfieReward int64         // Credits per verified cleanup selfie (default: 50)
	PendingTTL   time.Duration // Expiry for unconfirmed entries (default: 24h)
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		WelcomeGrant: 100,
		SelfieReward: 50,
		PendingTTL:   24 * time.Hour,
	}
}

// Service is the ledger service.
type Service struct {
	mu  sync.Mutex // serializes the ledger write path
	cfg Config
	db  *sqlite.DB

	feed Broadcaster // nil until the live feed is wired
}

// New creates a ledger service.
func New(cfg Config, db *sqlite.DB) *Service {
	return &Service{cfg: cfg, db: db}
}

// SetBroadcaster wires the live earnings feed.
func (s *Service) SetBroadcaster(b Broadcaster) { s.feed = b }

// RecordInput describes a transaction to record.
// Hash, Nonce and BlockNumber are normally left empty and stamped by the
// service; a caller-supplied value is kept as-is.
type RecordInput struct {
	UserID      string
	Type        domain.TransactionType
	Category    domain.TransactionCategory
	Amount      int64
	Description string
	Status      domain.TransactionStatus // default: confirmed
	Hash        string
	Nonce       string
	BlockNumber int64
	Fees        domain.Fees
	TaskID      string
	PhotoID     string
	VoucherID   string
	Metadata    map[string]string
}

// Record validates, stamps, and persists one ledger entry.
// A confirmed entry applies its balance effect atomically with the insert.
func (s *Service) Record(ctx context.Context, in RecordInput) (*domain.Transaction, error) {
	if errs := domain.ValidateTransactionInput(in.Type, in.Category, in.Amount); !errs.Ok() {
		return nil, errs
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Type:        in.Type,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: in.Description,
		Status:      in.Status,
		Hash:        in.Hash,
		BlockNumber: in.BlockNumber,
		Nonce:       in.Nonce,
		Fees:        in.Fees,
		TaskID:      in.TaskID,
		PhotoID:     in.PhotoID,
		VoucherID:   in.VoucherID,
		Metadata:    in.Metadata,
		CreatedAt:   now,
	}
	if t.Status == "" {
		t.Status = domain.TxConfirmed
	}
	if t.Status == domain.TxPending && s.cfg.PendingTTL > 0 {
		t.ExpiresAt = now.Add(s.cfg.PendingTTL)
	}
	if t.Nonce == "" {
		t.Nonce = uuid.NewString()
	}
	if t.Hash == "" {
		t.Hash = domain.TransactionHash(t.UserID, t.Type, t.Amount, t.CreatedAt, t.Nonce)
	}
	t.Fees.Total = t.Fees.Platform + t.Fees.Processing

	s.mu.Lock()
	err := s.db.RecordTransaction(t)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			observability.InsufficientFunds.Inc()
		}
		return nil, err
	}

	s.afterApply(t)
	log.Printf("[ledger] recorded block=%d type=%s category=%s amount=%d user=%s",
		t.BlockNumber, t.Type, t.Category, t.Amount, t.UserID)
	return t, nil
}

// Confirm transitions a pending entry to confirmed and applies its balance
// effect exactly once.
func (s *Service) Confirm(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.transition(ctx, txID, domain.TxConfirmed)
}

// Fail transitions a pending entry to failed. No balance effect.
func (s *Service) Fail(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.transition(ctx, txID, domain.TxFailed)
}

// Cancel transitions a pending entry to cancelled. No balance effect.
func (s *Service) Cancel(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.transition(ctx, txID, domain.TxCancelled)
}

func (s *Service) transition(ctx context.Context, txID string, status domain.TransactionStatus) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	t, err := s.db.SetTransactionStatus(txID, status)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			observability.InsufficientFunds.Inc()
		}
		return nil, err
	}
	if status == domain.TxConfirmed {
		s.afterApply(t)
	} else {
		observability.TransactionsRecorded.WithLabelValues(string(t.Category), string(t.Status)).Inc()
	}
	return t, nil
}

// afterApply updates metrics and the live feed for a confirmed entry.
func (s *Service) afterApply(t *domain.Transaction) {
	observability.TransactionsRecorded.WithLabelValues(string(t.Category), string(t.Status)).Inc()
	observability.BlockHeight.Set(float64(t.BlockNumber))
	if t.Status != domain.TxConfirmed {
		return
	}
	switch delta := t.BalanceEffect(); {
	case delta > 0:
		observability.CreditsEarned.Add(float64(delta))
		if s.feed != nil {
			s.feed.BroadcastEarning(t.UserID, delta, t.Type)
		}
	case delta < 0:
		observability.CreditsSpent.Add(float64(-delta))
	}
}

// ─── Direct Balance Mutations ───────────────────────────────────────────────

// Credit adds amount to a user's balance unconditionally.
func (s *Service) Credit(ctx context.Context, userID string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.CreditUser(userID, amount)
}

// Debit subtracts amount from a user's balance. It fails with
// domain.ErrInsufficientCredits when amount exceeds the balance; the
// sufficiency check and the write are one atomic storage statement.
func (s *Service) Debit(ctx context.Context, userID string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.DebitUser(userID, amount)
	if errors.Is(err, domain.ErrInsufficientCredits) {
		observability.InsufficientFunds.Inc()
	}
	return err
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Get retrieves one ledger entry.
func (s *Service) Get(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.db.GetTransaction(txID)
}

// List returns one page of a user's ledger, newest first.
// Limit must stay within [1, 100]; callers own the default, so an explicit
// zero is rejected rather than silently widened.
func (s *Service) List(ctx context.Context, userID string, f domain.TransactionFilter) (*domain.TransactionPage, error) {
	if errs := domain.ValidateListQuery(f.Limit, f.Offset); !errs.Ok() {
		return nil, errs
	}
	return s.db.ListTransactions(userID, f)
}

// Stats aggregates a user's ledger over a period
// (day, week, month, year, or all).
func (s *Service) Stats(ctx context.Context, userID, period string) (*domain.LedgerStats, error) {
	if !domain.ValidStatsPeriod(period) {
		return nil, domain.FieldErrors{{Field: "period", Reason: "must be one of day, week, month, year, all"}}
	}
	since := periodStart(period, time.Now().UTC())

	count, earned, spent, pending, err := s.db.TransactionStats(userID, since)
	if err != nil {
		return nil, err
	}
	out := &domain.LedgerStats{
		Period:       period,
		Count:        count,
		Earned:       earned,
		Spent:        spent,
		Net:          earned - spent,
		PendingCount: pending,
	}

	amounts, err := s.db.TransactionAmounts(userID, since)
	if err != nil {
		return nil, err
	}
	if len(amounts) > 0 {
		out.MeanAmount = stat.Mean(amounts, nil)
		out.StdDevAmount = stat.StdDev(amounts, nil)
	}
	return out, nil
}

// BlockHeight returns the current global block number.
func (s *Service) BlockHeight(ctx context.Context) (int64, error) {
	return s.db.MaxBlockNumber()
}

// periodStart maps a stats period to its window start. "all" is the zero
// time (whole ledger).
func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "day":
		return now.AddDate(0, 0, -1)
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// ─── Maintenance ────────────────────────────────────────────────────────────

// ExpirePending sweeps pending entries past expiry to failed.
func (s *Service) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.db.ExpirePending(now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.PendingExpired.Add(float64(n))
		log.Printf("[ledger] expired %d pending transactions", n)
	}
	return n, nil
}

// WelcomeGrant records the registration bonus for a new user.
func (s *Service) WelcomeGrant(ctx context.Context, userID string) (*domain.Transaction, error) {
	return s.Record(ctx, RecordInput{
		UserID:      userID,
		Type:        domain.TxBonusCredit,
		Category:    domain.CategoryBonus,
		Amount:      s.cfg.WelcomeGrant,
		Description: "welcome grant",
	})
}

// SelfieReward records the earning for a verified cleanup selfie.
func (s *Service) SelfieReward(ctx context.Context, userID, photoID string) (*domain.Transaction, error) {
	return s.Record(ctx, RecordInput{
		UserID:      userID,
		Type:        domain.TxSelfieCleanup,
		Category:    domain.CategoryEarning,
		Amount:      s.cfg.SelfieReward,
		Description: "verified cleanup selfie",
		PhotoID:     photoID,
	})
}
