package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"paycanvas.org/internal/ids"
)

const (
	// DefaultRefreshTTL is the lifetime of a refresh session.
	DefaultRefreshTTL = 14 * 24 * time.Hour

	refreshTokenBytes = 32
)

// Sessions manages single-use, rotating refresh sessions.
type Sessions struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

// WithSessionTTL overrides the refresh session lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSessionClock overrides time source (useful for tests).
func WithSessionClock(fn func() time.Time) SessionOption {
	return func(s *Sessions) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewSessions(store SessionStore, opts ...SessionOption) *Sessions {
	s := &Sessions{store: store, ttl: DefaultRefreshTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssuedSession pairs the stored session with the raw token handed to the client.
type IssuedSession struct {
	Session
	Token string
}

// Create starts a new session for userID, dropping any the user already had.
func (s *Sessions) Create(ctx context.Context, userID string) (*IssuedSession, error) {
	issued, err := s.newSession(userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, &issued.Session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return issued, nil
}

// Validate resolves a raw refresh token to its live session.
func (s *Sessions) Validate(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.store.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if s.now().After(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Rotate consumes sess and issues its replacement. A session can be rotated once.
func (s *Sessions) Rotate(ctx context.Context, sess *Session) (*IssuedSession, error) {
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	next, err := s.newSession(sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Rotate(ctx, sess.ID, &next.Session); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	return next, nil
}

// Revoke ends the session behind token. Unknown tokens are ignored.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.store.DeleteByTokenHash(ctx, HashToken(token))
}

// SweepExpired removes sessions that expired at or before now.
func (s *Sessions) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.store.DeleteExpired(ctx, now)
}

func (s *Sessions) newSession(userID string) (*IssuedSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	token, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &IssuedSession{
		Session: Session{
			ID:        ids.New(),
			UserID:    userID,
			TokenHash: HashToken(token),
			IssuedAt:  now,
			ExpiresAt: now.Add(s.ttl),
		},
		Token: token,
	}, nil
}

// HashToken returns the storage key for a raw refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
