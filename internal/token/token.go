// Package token issues and verifies signed, time-limited identity tokens (HS256 JWT).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/taskkeeper/internal/errs"
)

// MinSecretLen is the shortest accepted HMAC signing secret.
const MinSecretLen = 32

// DefaultTTL is the token lifetime when Config.TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

// Config is loaded once at startup and never mutated afterwards.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the token payload.
type Claims struct {
	CredVer int64 `json:"cv"`
	jwt.RegisteredClaims
}

// Identity is what a valid token asserts.
type Identity struct {
	UserID    uuid.UUID
	CredVer   int64
	ExpiresAt time.Time
}

// Service signs and verifies tokens with a single immutable secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// New validates cfg and constructs a Service. The secret is copied.
func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) < MinSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLen)
	}
	if cfg.TTL < 0 {
		return nil, errors.New("token ttl must not be negative")
	}
	s := &Service{
		secret: append([]byte(nil), cfg.Secret...),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    cfg.Now,
	}
	if s.ttl == 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Issue signs a token for userID that expires after the configured lifetime.
func (s *Service) Issue(userID uuid.UUID, credVer int64) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		CredVer: credVer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	return signed, exp, err
}

// Verify checks signature and expiry. Failures are *errs.AuthError with
// reason malformed, bad_signature or expired.
func (s *Service) Verify(raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, classify(err)
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return Identity{}, errs.Unauthorized(errs.ReasonMalformed)
	}
	return Identity{UserID: id, CredVer: claims.CredVer, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errs.Unauthorized(errs.ReasonExpired)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return errs.Unauthorized(errs.ReasonBadSignature)
	default:
		return errs.Unauthorized(errs.ReasonMalformed)
	}
}
