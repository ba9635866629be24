// Ledger storage operations.
//
// RecordTransaction is the single write path for new ledger rows: block
// assignment, the insert, and the balance effect all commit in one SQL
// transaction. A crash can therefore never leave a confirmed row without
// its balance effect, and block numbers stay strictly increasing.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenloop-app/greenloop/internal/domain"
)

// RecordTransaction persists a new ledger row.
// When t.BlockNumber is zero the next global block number is assigned;
// when t.PreviousHash is empty the latest row's hash is stamped in
// (stored for audit, never verified at read time).
// A confirmed row applies its balance effect before commit.
func (db *DB) RecordTransaction(t *domain.Transaction) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("begin ledger write: %w", err)
	}
	defer tx.Rollback()

	if t.BlockNumber == 0 {
		if err := tx.QueryRow(
			`SELECT COALESCE(MAX(block_number), 0) + 1 FROM transactions`,
		).Scan(&t.BlockNumber); err != nil {
			return fmt.Errorf("assign block number: %w", err)
		}
	}
	if t.PreviousHash == "" && t.BlockNumber > 1 {
		var prev sql.NullString
		err := tx.QueryRow(
			`SELECT hash FROM transactions ORDER BY block_number DESC LIMIT 1`,
		).Scan(&prev)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read previous hash: %w", err)
		}
		if prev.Valid {
			t.PreviousHash = prev.String
		}
	}

	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if t.Metadata == nil {
		meta = []byte("{}")
	}

	_, err = tx.Exec(`
		INSERT INTO transactions (id, user_id, type, category, amount,
			description, status, hash, previous_hash, block_number, nonce,
			fee_platform, fee_processing, fee_total,
			task_id, photo_id, voucher_id, metadata_json, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.Type, t.Category, t.Amount,
		t.Description, t.Status, t.Hash, t.PreviousHash, t.BlockNumber, t.Nonce,
		t.Fees.Platform, t.Fees.Processing, t.Fees.Total,
		t.TaskID, t.PhotoID, t.VoucherID, string(meta), nullTime(t.ExpiresAt), fmtTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if t.Status == domain.TxConfirmed {
		if delta := t.BalanceEffect(); delta != 0 {
			if err := applyBalance(tx, t.UserID, delta); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetTransaction retrieves a ledger row by id.
func (db *DB) GetTransaction(id string) (*domain.Transaction, error) {
	row := db.db.QueryRow(txSelect+` WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTxNotFound
	}
	return t, err
}

// SetTransactionStatus transitions a pending row to a terminal status.
// Confirming applies the balance effect in the same SQL transaction, so the
// effect lands exactly once. Terminal rows are left untouched.
func (db *DB) SetTransactionStatus(id string, status domain.TransactionStatus) (*domain.Transaction, error) {
	if !status.Terminal() {
		return nil, domain.ErrInvalidStatus
	}
	tx, err := db.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin status transition: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE transactions SET status = ? WHERE id = ? AND status = 'pending'
	`, status, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Read through the open transaction: the pool is capped at one
		// connection, and a pool-level query here would wait on it forever.
		if _, err := scanTransaction(tx.QueryRow(txSelect+` WHERE id = ?`, id)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.ErrTxNotFound
			}
			return nil, err
		}
		return nil, domain.ErrTxTerminal
	}

	t, err := scanTransaction(tx.QueryRow(txSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	if status == domain.TxConfirmed {
		if delta := t.BalanceEffect(); delta != 0 {
			if err := applyBalance(tx, t.UserID, delta); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransactions returns one page of a user's ledger, newest first.
func (db *DB) ListTransactions(userID string, f domain.TransactionFilter) (*domain.TransactionPage, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if !f.Start.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, fmtTime(f.Start))
	}
	if !f.End.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, fmtTime(f.End))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := db.db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE `+cond, args...,
	).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := db.db.Query(
		txSelect+` WHERE `+cond+` ORDER BY created_at DESC, block_number DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &domain.TransactionPage{
		Items:  []domain.Transaction{},
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	page.HasMore = f.Offset+len(page.Items) < total
	return page, nil
}

// TransactionStats aggregates a user's ledger since the given time.
// A zero since covers the whole ledger.
func (db *DB) TransactionStats(userID string, since time.Time) (count, earned, spent, pending int64, err error) {
	cond := `user_id = ?`
	args := []any{userID}
	if !since.IsZero() {
		cond += ` AND created_at >= ?`
		args = append(args, fmtTime(since))
	}
	err = db.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'confirmed' AND category IN ('earning', 'bonus') THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'confirmed' AND category IN ('spending', 'penalty') THEN ABS(amount) ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)
		FROM transactions WHERE `+cond, args...,
	).Scan(&count, &earned, &spent, &pending)
	return
}

// TransactionAmounts returns the confirmed amounts for a user since the
// given time, for distribution statistics.
func (db *DB) TransactionAmounts(userID string, since time.Time) ([]float64, error) {
	cond := `user_id = ? AND status = 'confirmed'`
	args := []any{userID}
	if !since.IsZero() {
		cond += ` AND created_at >= ?`
		args = append(args, fmtTime(since))
	}
	rows, err := db.db.Query(`SELECT amount FROM transactions WHERE `+cond, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var amounts []float64
	for rows.Next() {
		var a float64
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}

// MaxBlockNumber returns the current ledger height.
func (db *DB) MaxBlockNumber() (int64, error) {
	var n int64
	err := db.db.QueryRow(`SELECT COALESCE(MAX(block_number), 0) FROM transactions`).Scan(&n)
	return n, err
}

// ExpirePending fails every pending row whose expiry has passed.
// Returns the number of rows swept. Expired rows never applied a balance
// effect, so there is nothing to roll back.
func (db *DB) ExpirePending(now time.Time) (int64, error) {
	res, err := db.db.Exec(`
		UPDATE transactions SET status = 'failed'
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at < ?
	`, fmtTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ─── Row Scanning ───────────────────────────────────────────────────────────

const txSelect = `
	SELECT id, user_id, type, category, amount, description, status,
		hash, previous_hash, block_number, nonce,
		fee_platform, fee_processing, fee_total,
		task_id, photo_id, voucher_id, metadata_json, expires_at, created_at
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var meta string
	var expires sql.NullString
	var created string
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Category, &t.Amount,
		&t.Description, &t.Status, &t.Hash, &t.PreviousHash, &t.BlockNumber, &t.Nonce,
		&t.Fees.Platform, &t.Fees.Processing, &t.Fees.Total,
		&t.TaskID, &t.PhotoID, &t.VoucherID, &meta, &expires, &created)
	if err != nil {
		return nil, err
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &t.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	t.ExpiresAt = parseNullTime(expires)
	t.CreatedAt = parseTime(created)
	return &t, nil
}
