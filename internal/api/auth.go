// Authentication: registration, login, the bearer-token middleware, and
// the per-token rate limiter.
package api

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/greenloop-app/greenloop/internal/domain"
	"github.com/greenloop-app/greenloop/internal/infra/observability"
	"github.com/greenloop-app/greenloop/internal/infra/sqlite"
)

type contextKey string

const userIDKey contextKey = "greenloop-user-id"

// UserID returns the authenticated user id from a request context.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// ─── Registration / Login ───────────────────────────────────────────────────

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type authResponse struct {
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
	Balance int64        `json:"balance"`
}

// handleRegister creates an account, records the welcome grant, and issues
// a bearer token.
// POST /api/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := domain.ValidateRegisterInput(req.Email, req.DisplayName, req.Password); !errs.Ok() {
		writeFieldErrors(w, errs)
		return
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		DisplayName:  req.DisplayName,
		PasswordHash: hashPassword(req.Password),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.InsertUser(u); err != nil {
		writeDomainError(w, err)
		return
	}

	if _, err := s.ledger.WelcomeGrant(r.Context(), u.ID); err != nil {
		log.Printf("[api] welcome grant for user %s failed: %v", u.ID, err)
		writeDomainError(w, err)
		return
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	fresh, err := s.db.GetUser(u.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: fresh, Balance: fresh.Balance})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies credentials and issues a bearer token.
// POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := s.db.GetUserByEmail(strings.ToLower(req.Email))
	if err != nil || !verifyPassword(u.PasswordHash, req.Password) {
		// One message for both cases: never reveal which part was wrong.
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !u.Active {
		writeError(w, http.StatusForbidden, domain.ErrUserInactive.Error())
		return
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: u, Balance: u.Balance})
}

func (s *Server) issueToken(userID string) (string, error) {
	token := uuid.NewString()
	return token, s.db.InsertToken(token, userID, time.Now().UTC().Add(s.tokenTTL))
}

// ─── Middleware ─────────────────────────────────────────────────────────────

// requireAuth authenticates the bearer token. Each failure mode answers
// with its own 401 message: missing header, malformed header, unknown
// token, expired token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}

		userID, err := s.db.ResolveToken(token, time.Now().UTC())
		switch {
		case errors.Is(err, sqlite.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		case errors.Is(err, sqlite.ErrTokenNotFound):
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		case err != nil:
			writeDomainError(w, err)
			return
		}

		if s.limiter != nil && !s.limiter.allow(token) {
			observability.RequestsRejectedByRateLimit.Inc()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ─── Rate Limiting ──────────────────────────────────────────────────────────

// limiterCacheSize bounds the per-token limiter set. Tokens are issued on
// every login, so an unbounded map would grow for the life of the process;
// an evicted token simply starts a fresh bucket on its next request.
const limiterCacheSize = 4096

// tokenLimiter keeps one token-bucket limiter per bearer token.
type tokenLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache // token → *rate.Limiter
	rps      float64
	burst    int
}

func newTokenLimiter(rps float64, burst int) *tokenLimiter {
	cache, _ := lru.New(limiterCacheSize)
	return &tokenLimiter{
		limiters: cache,
		rps:      rps,
		burst:    burst,
	}
}

func (l *tokenLimiter) allow(token string) bool {
	l.mu.Lock()
	var lim *rate.Limiter
	if v, ok := l.limiters.Get(token); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters.Add(token, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

// ─── Password Hashing ───────────────────────────────────────────────────────
// Salted SHA-256, stored as "<salt-hex>$<digest-hex>". Token issuance and
// verification mechanics are deliberately simple; the credit ledger is the
// engineering core here.

func hashPassword(password string) string {
	salt := make([]byte, 16)
	rand.Read(salt)
	sum := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(sum[:])
}

func verifyPassword(stored, password string) bool {
	saltHex, digestHex, ok := strings.Cut(stored, "$")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(append(salt, []byte(password)...))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(digestHex)) == 1
}
