package sqlite

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/greenloop-app/greenloop/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedUser inserts a test account with the given starting balance.
func seedUser(t *testing.T, db *DB, id string, balance int64) {
	t.Helper()
	now := time.Now().UTC()
	err := db.InsertUser(domain.User{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  "Test " + id,
		PasswordHash: "x$y",
		Balance:      balance,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("InsertUser(%s) error: %v", id, err)
	}
}

// seedTx records a confirmed earning entry and returns it.
func seedTx(t *testing.T, db *DB, userID string, amount int64) *domain.Transaction {
	t.Helper()
	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:        fmt.Sprintf("tx-%d-%d", now.UnixNano(), amount),
		UserID:    userID,
		Type:      domain.TxSelfieCleanup,
		Category:  domain.CategoryEarning,
		Amount:    amount,
		Status:    domain.TxConfirmed,
		Hash:      domain.SHA256Hex([]byte(fmt.Sprintf("%s-%d-%d", userID, amount, now.UnixNano()))),
		Nonce:     "n",
		CreatedAt: now,
	}
	if err := db.RecordTransaction(tx); err != nil {
		t.Fatalf("RecordTransaction() error: %v", err)
	}
	return tx
}

func TestMigrations_TablesExist(t *testing.T) {
	db := newTestDB(t)

	tables := []string{"users", "transactions", "tasks", "vouchers", "api_tokens"}
	for _, tbl := range tables {
		t.Run(tbl, func(t *testing.T) {
			var name string
			err := db.db.QueryRow(
				`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tbl,
			).Scan(&name)
			if err != nil {
				t.Fatalf("table %s not found: %v", tbl, err)
			}
		})
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 6, 1, 12, 30, 45, 123456789, time.UTC)
	if got := parseTime(fmtTime(ts)); !got.Equal(ts) {
		t.Errorf("round trip changed time: %v -> %v", ts, got)
	}
	if !parseNullTime(sql.NullString{}).IsZero() {
		t.Error("null time should parse to zero")
	}
}
