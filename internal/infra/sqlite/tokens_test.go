package sqlite

import (
	"errors"
	"testing"
	"time"
)

func TestResolveToken(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice", 0)
	now := time.Now().UTC()

	if err := db.InsertToken("tok-1", "alice", now.Add(time.Hour)); err != nil {
		t.Fatalf("InsertToken() error: %v", err)
	}

	userID, err := db.ResolveToken("tok-1", now)
	if err != nil {
		t.Fatalf("ResolveToken() error: %v", err)
	}
	if userID != "alice" {
		t.Errorf("userID = %s, want alice", userID)
	}
}

func TestResolveToken_UnknownVsExpired(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice", 0)
	now := time.Now().UTC()
	db.InsertToken("tok-old", "alice", now.Add(-time.Hour))

	if _, err := db.ResolveToken("tok-ghost", now); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("unknown token error = %v, want ErrTokenNotFound", err)
	}
	if _, err := db.ResolveToken("tok-old", now); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expired token error = %v, want ErrTokenExpired", err)
	}
}

func TestDeleteExpiredTokens(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice", 0)
	now := time.Now().UTC()
	db.InsertToken("tok-old", "alice", now.Add(-time.Hour))
	db.InsertToken("tok-live", "alice", now.Add(time.Hour))

	n, err := db.DeleteExpiredTokens(now)
	if err != nil {
		t.Fatalf("DeleteExpiredTokens() error: %v", err)
	}
	if n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}
	if _, err := db.ResolveToken("tok-live", now); err != nil {
		t.Errorf("live token should survive the sweep: %v", err)
	}
}
