package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Sessions(ctx context.Context) SessionStore
	Features(ctx context.Context) FeatureStore
}

// UserStore reads accounts. Users are provisioned elsewhere.
type UserStore interface {
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// SessionStore persists refresh sessions. Replace and Rotate must be atomic.
type SessionStore interface {
	// Replace deletes every session of s.UserID and inserts s.
	Replace(ctx context.Context, s *Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	// Rotate deletes oldID and inserts next. It fails with ErrSessionNotFound
	// when oldID no longer exists.
	Rotate(ctx context.Context, oldID string, next *Session) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// FeatureStore exposes the capability catalog and per-tenant enablement.
type FeatureStore interface {
	AllKeys(ctx context.Context) ([]string, error)
	EnabledKeys(ctx context.Context, tenantID string) ([]string, error)
}
