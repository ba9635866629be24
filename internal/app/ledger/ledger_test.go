package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T) (*Service, *sqlite.DB) {
	t.Helper()
	db := newTestDB(t)
	return New(DefaultConfig(), db), db
}

func seedUser(t *testing.T, db *sqlite.DB, id string, balance int64) {
	t.Helper()
	now := time.Now().UTC()
	err := db.InsertUser(domain.User{
		ID: id, Email: id + "@example.com", DisplayName: id,
		PasswordHash: "x$y", Balance: balance, Active: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("InsertUser(%s) error: %v", id, err)
	}
}

// ─── Record ─────────────────────────────────────────────────────────────────

func TestRecord_StampsAndDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc.db, "alice", 0)

	tx, err := svc.Record(context.Background(), RecordInput{
		UserID:   "alice",
		Type:     domain.TxSelfieCleanup,
		Category: domain.CategoryEarning,
		Amount:   50,
		Fees:     domain.Fees{Platform: 2, Processing: 1},
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	if tx.Status != domain.TxConfirmed {
		t.Errorf("status = %s, want confirmed default", tx.Status)
	}
	if tx.ID == "" || tx.Nonce == "" {
		t.Error("id and nonce should be stamped")
	}
	if len(tx.Hash) != 64 {
		t.Errorf("hash = %q, want 64 hex chars", tx.Hash)
	}
	if tx.BlockNumber != 1 {
		t.Errorf("block = %d, want 1", tx.BlockNumber)
	}
	if tx.Fees.Total != 3 {
		t.Errorf("fee total = %d, want 3", tx.Fees.Total)
	}
	if !tx.ExpiresAt.IsZero() {
		t.Error("confirmed entry should carry no expiry")
	}

	want := domain.TransactionHash(tx.UserID, tx.Type, tx.Amount, tx.CreatedAt, tx.Nonce)
	if tx.Hash != want {
		t.Errorf("hash = %s, want recomputable %s", tx.Hash, want)
	}
}

func TestRecord_PendingGetsExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc.db, "alice", 0)

	tx, err := svc.Record(context.Background(), RecordInput{
		UserID:   "alice",
		Type:     domain.TxCreditPurchase,
		Category: domain.CategoryEarning,
		Amount:   500,
		Status:   domain.TxPending,
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if tx.ExpiresAt.IsZero() {
		t.Fatal("pending entry should carry an expiry")
	}
	ttl := tx.ExpiresAt.Sub(tx.CreatedAt)
	if ttl != DefaultConfig().PendingTTL {
		t.Errorf("expiry offset = %v, want %v", ttl, DefaultConfig().PendingTTL)
	}
}

func TestRecord_RejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc.db, "alice", 0)

	_, err := svc.Record(context.Background(), RecordInput{
		UserID:   "alice",
		Type:     domain.TransactionType("teleport"),
		Category: domain.CategoryEarning,
		Amount:   0,
	})
	var fieldErrs domain.FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("error = %v, want FieldErrors", err)
	}
	if len(fieldErrs) != 2 {
		t.Errorf("field errors = %v, want type and amount", fieldErrs)
	}

	// Nothing persisted for a rejected record.
	if height, _ := svc.BlockHeight(context.Background()); height != 0 {
		t.Errorf("height = %d, want 0", height)
	}
}

func TestRecord_InsufficientCredits(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc.db, "alice", 100)

	_, err := svc.Record(context.Background(), RecordInput{
		UserID:   "alice",
		Type:     domain.TxVoucherRedemption,
		Category: domain.CategorySpending,
		Amount:   -150,
	})
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("error = %v, want ErrInsufficientCredits", err)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

func TestConfirmPendingEntry(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "alice", 0)
	ctx := context.Background()

	tx, err := svc.Record(ctx, RecordInput{
		UserID: "alice", Type: domain.TxCreditPurchase,
		Category: domain.CategoryEarning, Amount: 200,
		Status: domain.TxPending,
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if u, _ := db.GetUser("alice"); u.Balance != 0 {
		t.Fatalf("pending moved balance: %d", u.Balance)
	}

	confirmed, err := svc.Confirm(ctx, tx.ID)
	if err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if confirmed.Status != domain.TxConfirmed {
		t.Errorf("status = %s, want confirmed", confirmed.Status)
	}
	if u, _ := db.GetUser("alice"); u.Balance != 200 {
		t.Errorf("balance = %d, want 200", u.Balance)
	}

	if _, err := svc.Cancel(ctx, tx.ID); !errors.Is(err, domain.ErrTxTerminal) {
		t.Errorf("cancel after confirm error = %v, want ErrTxTerminal", err)
	}
}

func TestFailAndCancelApplyNothing(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "alice", 0)
	ctx := context.Background()

	for _, transition := range []struct {
		name string
		do   func(context.Context, string) (*domain.Transaction, error)
		want domain.TransactionStatus
	}{
		{"fail", svc.Fail, domain.TxFailed},
		{"cancel", svc.Cancel, domain.TxCancelled},
	} {
		tx, err := svc.Record(ctx, RecordInput{
			UserID: "alice", Type: domain.TxCreditPurchase,
			Category: domain.CategoryEarning, Amount: 100,
			Status: domain.TxPending,
		})
		if err != nil {
			t.Fatalf("%s: Record() error: %v", transition.name, err)
		}
		got, err := transition.do(ctx, tx.ID)
		if err != nil {
			t.Fatalf("%s error: %v", transition.name, err)
		}
		if got.Status != transition.want {
			t.Errorf("%s: status = %s, want %s", transition.name, got.Status, transition.want)
		}
	}
	if u, _ := db.GetUser("alice"); u.Balance != 0 {
		t.Errorf("balance = %d, want 0", u.Balance)
	}
}

// ─── Grants ─────────────────────────────────────────────────────────────────

func TestWelcomeGrant(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "alice", 0)

	tx, err := svc.WelcomeGrant(context.Background(), "alice")
	if err != nil {
		t.Fatalf("WelcomeGrant() error: %v", err)
	}
	if tx.Type != domain.TxBonusCredit || tx.Category != domain.CategoryBonus || tx.Amount != 100 {
		t.Errorf("grant = %s/%s/%d, want bonus_credit/bonus/100", tx.Type, tx.Category, tx.Amount)
	}
	if u, _ := db.GetUser("alice"); u.Balance != 100 {
		t.Errorf("balance = %d, want 100", u.Balance)
	}
}

func TestSelfieReward(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "alice", 0)

	tx, err := svc.SelfieReward(context.Background(), "alice", "photo-1")
	if err != nil {
		t.Fatalf("SelfieReward() error: %v", err)
	}
	if tx.Amount != 50 || tx.PhotoID != "photo-1" {
		t.Errorf("reward = %d photo %s, want 50 photo-1", tx.Amount, tx.PhotoID)
	}
	if u, _ := db.GetUser("alice"); u.Balance != 50 {
		t.Errorf("balance = %d, want 50", u.Balance)
	}
}

// ─── Queries ────────────────────────────────────────────────────────────────

func TestList_DefaultLimit(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "alice", 0)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := svc.Record(ctx, RecordInput{
			UserID: "alice", Type: domain.TxSelfieCleanup,
			Category: domain.CategoryEarning, Amount: 10,
		}); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	page, err := svc.List(ctx, "alice", domain.TransactionFilter{Limit: 20})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if page.Limit != 20 || len(page.Items) != 20 || page.Total != 25 || !page.HasMore {
		t.Errorf("page = limit %d items %d total %d hasMore %v, want 20/20/25/true",
			page.Limit, len(page.Items), page.Total, page.HasMore)
	}

	if _, err := svc.List(ctx, "alice", domain.TransactionFilter{Limit: 500}); err == nil {
		t.Error("limit over 100 should be rejected")
	}
	if _, err := svc.List(ctx, "alice", domain.TransactionFilter{}); err == nil {
		t.Error("zero limit should be rejected")
	}
}

func TestStats(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "alice", 1000)
	ctx := context.Background()

	svc.Record(ctx, RecordInput{UserID: "alice", Type: domain.TxSelfieCleanup, Category: domain.CategoryEarning, Amount: 50})
	svc.Record(ctx, RecordInput{UserID: "alice", Type: domain.TxSelfieCleanup, Category: domain.CategoryEarning, Amount: 150})
	svc.Record(ctx, RecordInput{UserID: "alice", Type: domain.TxVoucherRedemption, Category: domain.CategorySpending, Amount: -100})

	stats, err := svc.Stats(ctx, "alice", "all")
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.Count != 3 || stats.Earned != 200 || stats.Spent != 100 || stats.Net != 100 {
		t.Errorf("stats = %+v, want count 3 earned 200 spent 100 net 100", stats)
	}
	// Amounts 50, 150, -100: mean ~33.33.
	if stats.MeanAmount < 33 || stats.MeanAmount > 34 {
		t.Errorf("mean = %f, want about 33.3", stats.MeanAmount)
	}
	if stats.StdDevAmount == 0 {
		t.Error("stddev should be non-zero for spread amounts")
	}

	if _, err := svc.Stats(ctx, "alice", "quarter"); err == nil {
		t.Error("unknown period should be rejected")
	}
}

// ─── Maintenance ────────────────────────────────────────────────────────────

func TestExpirePending(t *testing.T) {
	db := newTestDB(t)
	cfg := DefaultConfig()
	cfg.PendingTTL = time.Minute
	svc := New(cfg, db)
	seedUser(t, db, "alice", 0)
	ctx := context.Background()

	if _, err := svc.Record(ctx, RecordInput{
		UserID: "alice", Type: domain.TxCreditPurchase,
		Category: domain.CategoryEarning, Amount: 10,
		Status: domain.TxPending,
	}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	n, err := svc.ExpirePending(ctx, time.Now().UTC().Add(2*time.Minute))
	if err != nil {
		t.Fatalf("ExpirePending() error: %v", err)
	}
	if n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}
}

// ─── Live Feed ──────────────────────────────────────────────────────────────

type captureFeed struct {
	events []string
}

func (c *captureFeed) BroadcastEarning(userID string, amount int64, txType domain.TransactionType) {
	c.events = append(c.events, userID)
}

func TestBroadcastOnConfirmedEarning(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "alice", 100)
	feed := &captureFeed{}
	svc.SetBroadcaster(feed)
	ctx := context.Background()

	svc.Record(ctx, RecordInput{UserID: "alice", Type: domain.TxSelfieCleanup, Category: domain.CategoryEarning, Amount: 50})
	svc.Record(ctx, RecordInput{UserID: "alice", Type: domain.TxVoucherRedemption, Category: domain.CategorySpending, Amount: -50})
	svc.Record(ctx, RecordInput{
		UserID: "alice", Type: domain.TxCreditPurchase,
		Category: domain.CategoryEarning, Amount: 10, Status: domain.TxPending,
	})

	// Only the confirmed earning broadcasts.
	if len(feed.events) != 1 {
		t.Errorf("broadcasts = %d, want 1", len(feed.events))
	}
}
