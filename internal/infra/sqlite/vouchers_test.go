package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/greenloop-app/greenloop/internal/domain"
)

func seedVoucher(t *testing.T, db *DB, id string, cost int64, total *int64) {
	t.Helper()
	start, end := VoucherWindow(30)
	err := db.UpsertVoucher(domain.Voucher{
		ID:          id,
		Title:       "Coffee " + id,
		Partner:     "Green Grocer",
		CostCredits: cost,
		StartDate:   start,
		EndDate:     end,
		Total:       total,
		PerUserCap:  3,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("UpsertVoucher(%s) error: %v", id, err)
	}
}

func TestUpsertVoucher_UpdatePreservesUsed(t *testing.T) {
	db := newTestDB(t)
	seedVoucher(t, db, "v-1", 150, nil)

	if err := db.ConsumeVoucher("v-1", 2); err != nil {
		t.Fatalf("ConsumeVoucher() error: %v", err)
	}

	// Re-seeding the offer (new cost) must not reset the used counter.
	seedVoucher(t, db, "v-1", 200, nil)
	v, err := db.GetVoucher("v-1")
	if err != nil {
		t.Fatalf("GetVoucher() error: %v", err)
	}
	if v.CostCredits != 200 {
		t.Errorf("cost = %d, want 200", v.CostCredits)
	}
	if v.Used != 2 {
		t.Errorf("used = %d, want 2", v.Used)
	}
}

func TestGetVoucher_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetVoucher("ghost"); !errors.Is(err, domain.ErrVoucherNotFound) {
		t.Errorf("error = %v, want ErrVoucherNotFound", err)
	}
}

func TestConsumeVoucher_CapEnforced(t *testing.T) {
	db := newTestDB(t)
	total := int64(5)
	seedVoucher(t, db, "v-1", 100, &total)

	if err := db.ConsumeVoucher("v-1", 3); err != nil {
		t.Fatalf("first consume error: %v", err)
	}
	if err := db.ConsumeVoucher("v-1", 2); err != nil {
		t.Fatalf("second consume error: %v", err)
	}
	// Supply is gone; the guard rejects without mutating.
	if err := db.ConsumeVoucher("v-1", 1); !errors.Is(err, domain.ErrVoucherExhausted) {
		t.Fatalf("exhausted error = %v, want ErrVoucherExhausted", err)
	}

	v, _ := db.GetVoucher("v-1")
	if v.Used != 5 {
		t.Errorf("used = %d, want 5", v.Used)
	}
	if v.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", v.Remaining())
	}
}

func TestConsumeVoucher_QuantityOverSupply(t *testing.T) {
	db := newTestDB(t)
	total := int64(5)
	seedVoucher(t, db, "v-1", 100, &total)

	// 4 of 5 used; a consume of 2 would cross the cap and must fail whole.
	if err := db.ConsumeVoucher("v-1", 4); err != nil {
		t.Fatalf("consume error: %v", err)
	}
	if err := db.ConsumeVoucher("v-1", 2); !errors.Is(err, domain.ErrVoucherExhausted) {
		t.Fatalf("error = %v, want ErrVoucherExhausted", err)
	}
	v, _ := db.GetVoucher("v-1")
	if v.Used != 4 {
		t.Errorf("used = %d, want 4 (rejected consume must not partially apply)", v.Used)
	}
}

func TestConsumeVoucher_Unlimited(t *testing.T) {
	db := newTestDB(t)
	seedVoucher(t, db, "v-1", 100, nil)

	if err := db.ConsumeVoucher("v-1", 1000); err != nil {
		t.Fatalf("unlimited consume error: %v", err)
	}
	v, _ := db.GetVoucher("v-1")
	if v.Used != 1000 {
		t.Errorf("used = %d, want 1000", v.Used)
	}
}

func TestConsumeVoucher_Missing(t *testing.T) {
	db := newTestDB(t)
	if err := db.ConsumeVoucher("ghost", 1); !errors.Is(err, domain.ErrVoucherNotFound) {
		t.Errorf("error = %v, want ErrVoucherNotFound", err)
	}
}

func TestReleaseVoucher(t *testing.T) {
	db := newTestDB(t)
	total := int64(5)
	seedVoucher(t, db, "v-1", 100, &total)

	db.ConsumeVoucher("v-1", 3)
	if err := db.ReleaseVoucher("v-1", 2); err != nil {
		t.Fatalf("ReleaseVoucher() error: %v", err)
	}
	v, _ := db.GetVoucher("v-1")
	if v.Used != 1 {
		t.Errorf("used = %d, want 1", v.Used)
	}

	// Releasing more than was consumed floors at zero.
	if err := db.ReleaseVoucher("v-1", 10); err != nil {
		t.Fatalf("ReleaseVoucher() error: %v", err)
	}
	v, _ = db.GetVoucher("v-1")
	if v.Used != 0 {
		t.Errorf("used = %d, want 0", v.Used)
	}
}

func TestListVouchers(t *testing.T) {
	db := newTestDB(t)
	if vouchers, err := db.ListVouchers(); err != nil || len(vouchers) != 0 {
		t.Fatalf("empty catalog: %v, %v", vouchers, err)
	}

	seedVoucher(t, db, "v-1", 100, nil)
	seedVoucher(t, db, "v-2", 200, nil)
	vouchers, err := db.ListVouchers()
	if err != nil {
		t.Fatalf("ListVouchers() error: %v", err)
	}
	if len(vouchers) != 2 {
		t.Errorf("len = %d, want 2", len(vouchers))
	}
}
