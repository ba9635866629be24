// Voucher storage operations.
package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/greenloop-app/greenloop/internal/domain"
)

// UpsertVoucher inserts or replaces a voucher offer.
func (db *DB) UpsertVoucher(v domain.Voucher) error {
	_, err := db.db.Exec(`
		INSERT INTO vouchers (id, title, partner, cost_credits, start_date,
			end_date, total, per_user_cap, used, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title        = excluded.title,
			partner      = excluded.partner,
			cost_credits = excluded.cost_credits,
			start_date   = excluded.start_date,
			end_date     = excluded.end_date,
			total        = excluded.total,
			per_user_cap = excluded.per_user_cap,
			active       = excluded.active
	`, v.ID, v.Title, v.Partner, v.CostCredits, fmtTime(v.StartDate),
		fmtTime(v.EndDate), v.Total, v.PerUserCap, v.Used, boolToInt(v.Active), fmtTime(v.CreatedAt))
	return err
}

// GetVoucher retrieves a voucher by id.
func (db *DB) GetVoucher(id string) (*domain.Voucher, error) {
	row := db.db.QueryRow(voucherSelect+` WHERE id = ?`, id)
	v, err := scanVoucher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVoucherNotFound
	}
	return v, err
}

// ListVouchers returns every voucher, newest first.
func (db *DB) ListVouchers() ([]domain.Voucher, error) {
	rows, err := db.db.Query(voucherSelect + ` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// ConsumeVoucher increments the used counter by quantity. The WHERE guard
// keeps used within the total cap when one is set, atomically: a rejected
// consume mutates nothing.
func (db *DB) ConsumeVoucher(id string, quantity int64) error {
	res, err := db.db.Exec(`
		UPDATE vouchers SET used = used + ?
		WHERE id = ? AND (total IS NULL OR used + ? <= total)
	`, quantity, id, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.GetVoucher(id); err != nil {
			return err
		}
		return domain.ErrVoucherExhausted
	}
	return nil
}

// ReleaseVoucher undoes a ConsumeVoucher, used as the compensating action
// when the ledger entry for a redemption cannot be recorded.
func (db *DB) ReleaseVoucher(id string, quantity int64) error {
	res, err := db.db.Exec(`
		UPDATE vouchers SET used = MAX(used - ?, 0) WHERE id = ?
	`, quantity, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrVoucherNotFound)
}

const voucherSelect = `
	SELECT id, title, partner, cost_credits, start_date, end_date,
		total, per_user_cap, used, active, created_at
	FROM vouchers`

func scanVoucher(row rowScanner) (*domain.Voucher, error) {
	var v domain.Voucher
	var start, end, created string
	var total sql.NullInt64
	var active int
	err := row.Scan(&v.ID, &v.Title, &v.Partner, &v.CostCredits, &start, &end,
		&total, &v.PerUserCap, &v.Used, &active, &created)
	if err != nil {
		return nil, err
	}
	if total.Valid {
		t := total.Int64
		v.Total = &t
	}
	v.StartDate = parseTime(start)
	v.EndDate = parseTime(end)
	v.Active = active == 1
	v.CreatedAt = parseTime(created)
	return &v, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// VoucherWindow returns a validity window opening an hour ago and closing
// after the given number of days. Used when seeding offers.
func VoucherWindow(days int) (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(-time.Hour), now.AddDate(0, 0, days)
}
