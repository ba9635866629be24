package sqlite

import (
	"errors"
	"testing"

	"github.com/greenloop-app/greenloop/internal/domain"
)

func TestInsertUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice", 0)

	now := mustGetUser(t, db, "alice").CreatedAt
	err := db.InsertUser(domain.User{
		ID:          "alice-2",
		Email:       "alice@example.com",
		DisplayName: "Duplicate",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("duplicate email error = %v, want ErrUserExists", err)
	}
}

func mustGetUser(t *testing.T, db *DB, id string) *domain.User {
	t.Helper()
	u, err := db.GetUser(id)
	if err != nil {
		t.Fatalf("GetUser(%s) error: %v", id, err)
	}
	return u
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetUser("ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
	if _, err := db.GetUserByEmail("ghost@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("by email error = %v, want ErrUserNotFound", err)
	}
}

func TestCreditDebitUser(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "bob", 100)

	if err := db.CreditUser("bob", 50); err != nil {
		t.Fatalf("CreditUser() error: %v", err)
	}
	if got := mustGetUser(t, db, "bob").Balance; got != 150 {
		t.Errorf("balance after credit = %d, want 150", got)
	}

	if err := db.DebitUser("bob", 150); err != nil {
		t.Fatalf("DebitUser() error: %v", err)
	}
	if got := mustGetUser(t, db, "bob").Balance; got != 0 {
		t.Errorf("balance after debit = %d, want 0", got)
	}
}

func TestDebitUser_InsufficientCredits(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "carol", 100)

	err := db.DebitUser("carol", 150)
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("overdraft error = %v, want ErrInsufficientCredits", err)
	}
	// The rejected debit must not have moved the balance.
	if got := mustGetUser(t, db, "carol").Balance; got != 100 {
		t.Errorf("balance after rejected debit = %d, want 100", got)
	}
}

func TestDebitUser_MissingUser(t *testing.T) {
	db := newTestDB(t)
	if err := db.DebitUser("ghost", 10); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestCreditUser_InvalidAmount(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "dave", 0)

	if err := db.CreditUser("dave", 0); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero credit error = %v, want ErrInvalidAmount", err)
	}
	if err := db.DebitUser("dave", -5); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("negative debit error = %v, want ErrInvalidAmount", err)
	}
}

func TestAddUserStats(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "eve", 0)

	if err := db.AddUserStats("eve", domain.UserStats{Cleanups: 1, ItemsCollected: 12, CO2SavedGrams: 340}); err != nil {
		t.Fatalf("AddUserStats() error: %v", err)
	}
	if err := db.AddUserStats("eve", domain.UserStats{Cleanups: 1, TasksCompleted: 1}); err != nil {
		t.Fatalf("AddUserStats() error: %v", err)
	}

	stats := mustGetUser(t, db, "eve").Stats
	if stats.Cleanups != 2 || stats.TasksCompleted != 1 || stats.ItemsCollected != 12 || stats.CO2SavedGrams != 340 {
		t.Errorf("stats = %+v, want cleanups=2 tasks=1 items=12 co2=340", stats)
	}
}

func TestSetUserActive(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "frank", 75)

	if err := db.SetUserActive("frank", false); err != nil {
		t.Fatalf("SetUserActive() error: %v", err)
	}
	u := mustGetUser(t, db, "frank")
	if u.Active {
		t.Error("user should be inactive")
	}
	// Deactivation is a soft flag: balance and row survive.
	if u.Balance != 75 {
		t.Errorf("balance after deactivation = %d, want 75", u.Balance)
	}
}
