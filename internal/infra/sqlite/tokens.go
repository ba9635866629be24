// API token storage operations.
package sqlite

import (
	"database/sql"
	"errors"
	"time"
)

// ErrTokenNotFound is returned for unknown bearer tokens.
var ErrTokenNotFound = errors.New("token not found")

// ErrTokenExpired is returned for known but expired bearer tokens.
var ErrTokenExpired = errors.New("token expired")

// InsertToken stores a bearer token for a user.
func (db *DB) InsertToken(token, userID string, expiresAt time.Time) error {
	_, err := db.db.Exec(`
		INSERT INTO api_tokens (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, token, userID, fmtTime(expiresAt), fmtTime(time.Now()))
	return err
}

// ResolveToken returns the user id for a valid token.
// An expired token is reported distinctly from an unknown one so the API
// can answer with a specific 401 message.
func (db *DB) ResolveToken(token string, now time.Time) (string, error) {
	var userID, expires string
	err := db.db.QueryRow(`
		SELECT user_id, expires_at FROM api_tokens WHERE token = ?
	`, token).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	if now.After(parseTime(expires)) {
		return "", ErrTokenExpired
	}
	return userID, nil
}

// DeleteExpiredTokens sweeps tokens past their expiry.
func (db *DB) DeleteExpiredTokens(now time.Time) (int64, error) {
	res, err := db.db.Exec(`DELETE FROM api_tokens WHERE expires_at < ?`, fmtTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
