package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"paycanvas.org/internal/obs"
)

// Service authenticates credentials and refresh sessions and mints token bundles.
type Service struct {
	store    Store
	codec    *Codec
	sessions *Sessions
	features *FeatureResolver
	logger   *zap.Logger

	now        func() time.Time
	refreshTTL time.Duration
	featureSrc FeatureStore
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithRefreshTTL configures refresh session lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// WithFeatureStore resolves entitlements through fs instead of the store's own
// feature tables, e.g. a cache in front of them.
func WithFeatureStore(fs FeatureStore) ServiceOption {
	return func(s *Service) error {
		s.featureSrc = fs
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	svc := &Service{
		store:      store,
		codec:      codec,
		logger:     zap.NewNop(),
		now:        time.Now,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	ctx := context.Background()
	if svc.featureSrc == nil {
		svc.featureSrc = store.Features(ctx)
	}
	svc.features = NewFeatureResolver(svc.featureSrc)
	svc.sessions = NewSessions(store.Sessions(ctx), WithSessionTTL(svc.refreshTTL), WithSessionClock(svc.now))
	return svc, nil
}

// Sessions exposes the refresh session manager (for the sweeper).
func (s *Service) Sessions() *Sessions { return s.sessions }

// Summary describes the authenticated user to the client.
type Summary struct {
	UserID      string
	CompanyID   string
	CompanyName string
	Role        Role
	Features    []string
	DisplayName string
}

// Bundle is returned by Login and Refresh.
type Bundle struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	User             Summary
}

// Login verifies credentials. Unknown email, inactive account and wrong password
// are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Bundle, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		obs.ObserveLogin(obs.OutcomeRejected)
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			burnPasswordCheck(password)
			obs.ObserveLogin(obs.OutcomeRejected)
			return nil, ErrInvalidCredentials
		}
		obs.ObserveLogin(obs.OutcomeError)
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !VerifyPassword(password, user.PasswordHash) || !user.Active() {
		obs.ObserveLogin(obs.OutcomeRejected)
		return nil, ErrInvalidCredentials
	}

	bundle, err := s.mint(ctx, user)
	if err != nil {
		obs.ObserveLogin(obs.OutcomeError)
		return nil, err
	}
	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		obs.ObserveLogin(obs.OutcomeError)
		return nil, err
	}
	bundle.RefreshToken = sess.Token
	bundle.RefreshExpiresAt = sess.ExpiresAt

	obs.ObserveLogin(obs.OutcomeSuccess)
	s.logger.Info("login succeeded",
		zap.String("user_id", user.ID),
		zap.String("tenant_id", user.TenantID),
		zap.String("role", string(bundle.User.Role)))
	return bundle, nil
}

// Refresh consumes a refresh token and returns a new bundle built from current
// role and entitlement data. A token can be used once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Bundle, error) {
	sess, err := s.sessions.Validate(ctx, refreshToken)
	if err != nil {
		return nil, s.refreshFailure(err)
	}
	next, err := s.sessions.Rotate(ctx, sess)
	if err != nil {
		return nil, s.refreshFailure(err)
	}

	user, err := s.store.Users(ctx).Find(ctx, sess.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		obs.ObserveRefresh(obs.OutcomeError)
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err != nil || !user.Active() {
		_ = s.sessions.Revoke(ctx, next.Token)
		obs.ObserveRefresh(obs.OutcomeRejected)
		return nil, fmt.Errorf("%w: account unavailable", ErrInvalidSession)
	}

	bundle, err := s.mint(ctx, user)
	if err != nil {
		obs.ObserveRefresh(obs.OutcomeError)
		return nil, err
	}
	bundle.RefreshToken = next.Token
	bundle.RefreshExpiresAt = next.ExpiresAt
	obs.ObserveRefresh(obs.OutcomeSuccess)
	return bundle, nil
}

// Logout revokes the refresh session. Access tokens stay valid until they expire.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Profile describes the caller. Role and entitlements are those of the access
// token; names are read from the current user record.
func (s *Service) Profile(ctx context.Context, p Principal) (Summary, error) {
	user, err := s.store.Users(ctx).Find(ctx, p.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Summary{}, fmt.Errorf("find user: %w", err)
	}
	if err != nil || !user.Active() {
		return Summary{}, fmt.Errorf("%w: account unavailable", ErrUnauthenticated)
	}
	return Summary{
		UserID:      user.ID,
		CompanyID:   p.TenantID,
		CompanyName: user.TenantName,
		Role:        p.Role,
		Features:    p.Entitlements,
		DisplayName: user.DisplayName,
	}, nil
}

func (s *Service) refreshFailure(err error) error {
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
		obs.ObserveRefresh(obs.OutcomeRejected)
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	obs.ObserveRefresh(obs.OutcomeError)
	return err
}

func (s *Service) mint(ctx context.Context, user *User) (*Bundle, error) {
	role, assigned := user.PrimaryRole()
	if !assigned {
		s.logger.Warn("user has no role assignment, defaulting",
			zap.String("user_id", user.ID),
			zap.String("role", string(role)))
	}
	features, err := s.features.Resolve(ctx, role, user.TenantID)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.codec.Issue(Claims{
		TenantID:         user.TenantID,
		Role:             role,
		Entitlements:     features,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
	}, 0)
	if err != nil {
		return nil, err
	}
	return &Bundle{
		AccessToken: token,
		ExpiresAt:   exp,
		User: Summary{
			UserID:      user.ID,
			CompanyID:   user.TenantID,
			CompanyName: user.TenantName,
			Role:        role,
			Features:    features,
			DisplayName: user.DisplayName,
		},
	}, nil
}

// NormalizeEmail lower-cases and trims an email for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	timingHashOnce sync.Once
	timingHash     []byte
)

// burnPasswordCheck spends a bcrypt comparison so unknown emails take as long as
// wrong passwords.
func burnPasswordCheck(password string) {
	timingHashOnce.Do(func() {
		timingHash, _ = bcrypt.GenerateFromPassword([]byte("paycanvas"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(timingHash, []byte(password))
}
