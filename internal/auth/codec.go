package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTTL is used when Issue is called without an explicit lifetime.
	DefaultAccessTTL = 60 * time.Minute

	minSecretBytes = 32
	secretPadByte  = '0'
)

var errMissingSecret = errors.New("auth: token secret is not configured")

// Codec signs and verifies HS256 access tokens.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithIssuer sets the iss claim and requires it on parse.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		c.issuer = strings.TrimSpace(issuer)
	}
}

// WithTokenTTL overrides the default access token lifetime.
func WithTokenTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLeeway tolerates clock skew between issuer and verifier when checking expiry.
func WithLeeway(d time.Duration) CodecOption {
	return func(c *Codec) {
		if d >= 0 {
			c.leeway = d
		}
	}
}

// WithCodecClock overrides time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec builds a codec from the shared secret. Secrets shorter than 256 bits are
// right-padded so the same input always yields the same key.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	c := &Codec{
		secret: padSecret(secret),
		ttl:    DefaultAccessTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the default access token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs claims, stamping version, issued-at, expiry and token id.
// A non-positive ttl falls back to the codec default.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", time.Time{}, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if !IsValidRole(claims.Role) {
		return "", time.Time{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, claims.Role)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	now := c.now().UTC()
	exp := jwt.NewNumericDate(now.Add(ttl))
	claims.Version = ClaimsVersion
	claims.Entitlements = normalizeKeys(claims.Entitlements)
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = exp
	claims.ID = uuid.NewString()
	if c.issuer != "" {
		claims.Issuer = c.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp.Time, nil
}

// Parse verifies the signature before trusting any claim. Every failure,
// including expiry at or after exp, is reported as ErrInvalidToken.
func (c *Codec) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := validateClaims(claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims.Entitlements = normalizeKeys(claims.Entitlements)
	return claims, nil
}

func validateClaims(claims *Claims) error {
	if claims.Version != ClaimsVersion {
		return fmt.Errorf("unsupported claims version %d", claims.Version)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if !IsValidRole(claims.Role) {
		return fmt.Errorf("unknown role %q", claims.Role)
	}
	if claims.IssuedAt == nil {
		return errors.New("issued-at missing")
	}
	return nil
}

func padSecret(secret string) []byte {
	key := []byte(secret)
	for len(key) < minSecretBytes {
		key = append(key, secretPadByte)
	}
	return key
}
