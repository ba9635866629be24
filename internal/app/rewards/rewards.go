// Package rewards implements the voucher catalog and the redemption
// workflow. Redemption preconditions are checked in a fixed order, each
// failing with its own sentinel error, so the API can answer with a
// specific reason instead of a generic failure.
package rewards

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/greenloop-app/greenloop/internal/app/ledger"
	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/observability"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

const catalogCacheSize = 256

// Service is the rewards service.
type Service struct {
	db     *sqlite.DB
	ledger *ledger.Service
	cache  *lru.Cache // voucher id → *domain.Voucher
}

// New creates a rewards service.
func New(db *sqlite.DB, lg *ledger.Service) *Service {
	cache, _ := lru.New(catalogCacheSize)
	return &Service{db: db, ledger: lg, cache: cache}
}

// ─── Catalog ────────────────────────────────────────────────────────────────

// Upsert adds or updates a voucher offer and invalidates its cache entry.
func (s *Service) Upsert(ctx context.Context, v domain.Voucher) error {
	if err := s.db.UpsertVoucher(v); err != nil {
		return err
	}
	s.cache.Remove(v.ID)
	return nil
}

// Get retrieves a voucher, serving repeat reads from the LRU cache.
func (s *Service) Get(ctx context.Context, id string) (*domain.Voucher, error) {
	if cached, ok := s.cache.Get(id); ok {
		observability.CatalogCacheHits.WithLabelValues("hit").Inc()
		return cached.(*domain.Voucher), nil
	}
	observability.CatalogCacheHits.WithLabelValues("miss").Inc()

	v, err := s.db.GetVoucher(id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, v)
	return v, nil
}

// Available returns the vouchers a user could redeem right now: active,
// inside their validity window, and with supply remaining.
func (s *Service) Available(ctx context.Context, now time.Time) ([]domain.Voucher, error) {
	all, err := s.db.ListVouchers()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Voucher, 0, len(all))
	for _, v := range all {
		if v.Active && v.InWindow(now) && v.Remaining() != 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

// ─── Redemption ─────────────────────────────────────────────────────────────

// RedeemResult is a successful redemption: the updated voucher, the
// spending ledger entry, and the user's new balance.
type RedeemResult struct {
	Voucher     *domain.Voucher     `json:"voucher"`
	Transaction *domain.Transaction `json:"transaction"`
	Balance     int64               `json:"balance"`
}

// Redeem spends credits on quantity units of a voucher.
//
// Preconditions, in order, each with a distinct error: the voucher exists;
// it is active; the current time is inside [StartDate, EndDate]; quantity
// does not exceed the per-user cap; cost × quantity does not exceed the
// user's balance. A failed precondition mutates nothing.
//
// Per-user redemptions are not tracked cumulatively across calls: the cap
// binds each call on its own. Known limitation, kept deliberately.
func (s *Service) Redeem(ctx context.Context, userID, voucherID string, quantity int64) (*RedeemResult, error) {
	if errs := domain.ValidateRedeemInput(voucherID, quantity); !errs.Ok() {
		return nil, errs
	}
	now := time.Now().UTC()

	v, err := s.db.GetVoucher(voucherID) // bypass cache: Used must be fresh
	if err != nil {
		s.reject("not_found")
		return nil, err
	}
	if !v.Active {
		s.reject("inactive")
		return nil, domain.ErrVoucherInactive
	}
	if now.Before(v.StartDate) {
		s.reject("not_started")
		return nil, domain.ErrVoucherNotStarted
	}
	if now.After(v.EndDate) {
		s.reject("expired")
		return nil, domain.ErrVoucherExpired
	}
	if quantity > v.PerUserCap {
		s.reject("per_user_cap")
		return nil, domain.ErrVoucherUserCap
	}

	cost := v.CostCredits * quantity
	user, err := s.db.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if cost > user.Balance {
		s.reject("insufficient_credits")
		return nil, domain.ErrInsufficientCredits
	}

	// Consume supply first; the guarded update enforces used <= total even
	// under concurrent redemptions.
	if err := s.db.ConsumeVoucher(voucherID, quantity); err != nil {
		if errors.Is(err, domain.ErrVoucherExhausted) {
			s.reject("exhausted")
		}
		return nil, err
	}

	// The ledger entry debits the balance atomically with its insert. If
	// the balance moved under us, release the consumed supply again.
	tx, err := s.ledger.Record(ctx, ledger.RecordInput{
		UserID:      userID,
		Type:        domain.TxVoucherRedemption,
		Category:    domain.CategorySpending,
		Amount:      -cost,
		Description: "redeemed " + v.Title,
		VoucherID:   voucherID,
		Metadata:    map[string]string{"quantity": strconv.FormatInt(quantity, 10)},
	})
	if err != nil {
		if rerr := s.db.ReleaseVoucher(voucherID, quantity); rerr != nil {
			log.Printf("[rewards] release voucher %s after failed ledger write: %v", voucherID, rerr)
		}
		if errors.Is(err, domain.ErrInsufficientCredits) {
			s.reject("insufficient_credits")
		}
		return nil, err
	}

	s.cache.Remove(voucherID)
	observability.Redemptions.Inc()

	updated, err := s.db.GetVoucher(voucherID)
	if err != nil {
		return nil, err
	}
	after, err := s.db.GetUser(userID)
	if err != nil {
		return nil, err
	}

	log.Printf("[rewards] user=%s redeemed voucher=%s qty=%d cost=%d", userID, voucherID, quantity, cost)
	return &RedeemResult{Voucher: updated, Transaction: tx, Balance: after.Balance}, nil
}

func (s *Service) reject(reason string) {
	observability.RedemptionRejections.WithLabelValues(reason).Inc()
}
