// Package sqlite implements persistent storage for GreenLoop on
// modernc.org/sqlite (pure-Go driver, no CGO).
//
// One database file holds every collection: users, transactions, tasks,
// vouchers, and api_tokens. The ledger write path runs inside a single SQL
// transaction so block assignment and the balance effect commit together.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle.
type DB struct {
	db   *sql.DB
	path string
}

// Open creates (if needed) and opens the database under dir.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(dir, "greenloop.db")

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer: sqlite serializes writes anyway, and capping the pool
	// at one connection avoids SQLITE_BUSY under concurrent handlers.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	db := &DB{db: sqlDB, path: path}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database.
func (db *DB) Close() error { return db.db.Close() }

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (sqlite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			email           TEXT NOT NULL UNIQUE,
			display_name    TEXT NOT NULL,
			password_hash   TEXT NOT NULL,
			balance         INTEGER NOT NULL DEFAULT 0 CHECK(balance >= 0),
			cleanups        INTEGER NOT NULL DEFAULT 0,
			tasks_completed INTEGER NOT NULL DEFAULT 0,
			items_collected INTEGER NOT NULL DEFAULT 0,
			co2_saved_grams INTEGER NOT NULL DEFAULT 0,
			active          INTEGER NOT NULL DEFAULT 1,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id),
			type           TEXT NOT NULL,
			category       TEXT NOT NULL,
			amount         INTEGER NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'pending',
			hash           TEXT NOT NULL,
			previous_hash  TEXT NOT NULL DEFAULT '',
			block_number   INTEGER NOT NULL UNIQUE,
			nonce          TEXT NOT NULL DEFAULT '',
			fee_platform   INTEGER NOT NULL DEFAULT 0,
			fee_processing INTEGER NOT NULL DEFAULT 0,
			fee_total      INTEGER NOT NULL DEFAULT 0,
			task_id        TEXT NOT NULL DEFAULT '',
			photo_id       TEXT NOT NULL DEFAULT '',
			voucher_id     TEXT NOT NULL DEFAULT '',
			metadata_json  TEXT NOT NULL DEFAULT '{}',
			expires_at     TEXT,
			created_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_user ON transactions(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_status ON transactions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_block ON transactions(block_number DESC)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id),
			title          TEXT NOT NULL,
			category       TEXT NOT NULL DEFAULT '',
			target         INTEGER NOT NULL,
			current        INTEGER NOT NULL DEFAULT 0,
			reward_credits INTEGER NOT NULL DEFAULT 0,
			reward_xp      INTEGER NOT NULL DEFAULT 0,
			status         TEXT NOT NULL DEFAULT 'active',
			recurring      INTEGER NOT NULL DEFAULT 0,
			completed_at   TEXT,
			created_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id, status)`,

		`CREATE TABLE IF NOT EXISTS vouchers (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			partner      TEXT NOT NULL DEFAULT '',
			cost_credits INTEGER NOT NULL,
			start_date   TEXT NOT NULL,
			end_date     TEXT NOT NULL,
			total        INTEGER,
			per_user_cap INTEGER NOT NULL DEFAULT 1,
			used         INTEGER NOT NULL DEFAULT 0,
			active       INTEGER NOT NULL DEFAULT 1,
			created_at   TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS api_tokens (
			token      TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tokens_user ON api_tokens(user_id)`,
	}
}

// ─── Time Helpers ───────────────────────────────────────────────────────────
// All timestamps are stored as RFC3339 strings with a fixed-width fractional
// part. RFC3339Nano strips trailing zeros, which makes whole-second values
// sort after fractional ones in the same second and breaks ORDER BY and
// range filters on the stored text. Nine digits keeps the strings
// lexicographically monotone.

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return fmtTime(t)
}

func parseNullTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTime(s.String)
}
