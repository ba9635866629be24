// User storage operations: accounts, balances, cumulative stats.
package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/greenloop-app/greenloop/internal/domain"
)

// InsertUser creates a new account row.
func (db *DB) InsertUser(u domain.User) error {
	_, err := db.db.Exec(`
		INSERT INTO users (id, email, display_name, password_hash, balance,
			cleanups, tasks_completed, items_collected, co2_saved_grams,
			active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Balance,
		u.Stats.Cleanups, u.Stats.TasksCompleted, u.Stats.ItemsCollected, u.Stats.CO2SavedGrams,
		boolToInt(u.Active), fmtTime(u.CreatedAt), fmtTime(u.UpdatedAt))
	if err != nil && isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	return err
}

// GetUser retrieves a user by id.
func (db *DB) GetUser(id string) (*domain.User, error) {
	return db.scanUser(db.db.QueryRow(`
		SELECT id, email, display_name, password_hash, balance,
			cleanups, tasks_completed, items_collected, co2_saved_grams,
			active, created_at, updated_at
		FROM users WHERE id = ?
	`, id))
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*domain.User, error) {
	return db.scanUser(db.db.QueryRow(`
		SELECT id, email, display_name, password_hash, balance,
			cleanups, tasks_completed, items_collected, co2_saved_grams,
			active, created_at, updated_at
		FROM users WHERE email = ?
	`, email))
}

func (db *DB) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var active int
	var created, updated string
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Balance,
		&u.Stats.Cleanups, &u.Stats.TasksCompleted, &u.Stats.ItemsCollected, &u.Stats.CO2SavedGrams,
		&active, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Active = active == 1
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return &u, nil
}

// CreditUser adds amount to a user's balance. Amount must be positive.
func (db *DB) CreditUser(id string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	res, err := db.db.Exec(`
		UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?
	`, amount, fmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrUserNotFound)
}

// DebitUser subtracts amount from a user's balance. The WHERE guard makes
// the sufficiency check and the write one atomic statement, so concurrent
// debits cannot overdraft.
func (db *DB) DebitUser(id string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	res, err := db.db.Exec(`
		UPDATE users SET balance = balance - ?, updated_at = ?
		WHERE id = ? AND balance >= ?
	`, amount, fmtTime(time.Now()), id, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing user from an underfunded one.
		if _, err := db.GetUser(id); err != nil {
			return err
		}
		return domain.ErrInsufficientCredits
	}
	return nil
}

// applyBalance applies a signed delta inside an open SQL transaction.
// Negative deltas carry the same atomic floor guard as DebitUser.
func applyBalance(tx *sql.Tx, userID string, delta int64) error {
	now := fmtTime(time.Now())
	if delta >= 0 {
		res, err := tx.Exec(`
			UPDATE users SET balance = balance + ?, updated_at = ? WHERE id = ?
		`, delta, now, userID)
		if err != nil {
			return err
		}
		return oneRowOr(res, domain.ErrUserNotFound)
	}
	res, err := tx.Exec(`
		UPDATE users SET balance = balance - ?, updated_at = ?
		WHERE id = ? AND balance >= ?
	`, -delta, now, userID, -delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrUserNotFound
		}
		return domain.ErrInsufficientCredits
	}
	return nil
}

// AddUserStats increments a user's cumulative counters.
func (db *DB) AddUserStats(id string, delta domain.UserStats) error {
	res, err := db.db.Exec(`
		UPDATE users SET
			cleanups        = cleanups + ?,
			tasks_completed = tasks_completed + ?,
			items_collected = items_collected + ?,
			co2_saved_grams = co2_saved_grams + ?,
			updated_at      = ?
		WHERE id = ?
	`, delta.Cleanups, delta.TasksCompleted, delta.ItemsCollected, delta.CO2SavedGrams,
		fmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrUserNotFound)
}

// SetUserActive soft-deactivates or reactivates an account.
// Users are never hard-deleted.
func (db *DB) SetUserActive(id string, active bool) error {
	res, err := db.db.Exec(`
		UPDATE users SET active = ?, updated_at = ? WHERE id = ?
	`, boolToInt(active), fmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrUserNotFound)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func oneRowOr(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
