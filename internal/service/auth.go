// Package service contains application services for authentication and tasks.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/taskkeeper/internal/crypto"
	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/limiter"
	"github.com/and161185/taskkeeper/internal/model"
	"github.com/and161185/taskkeeper/internal/repository"
	"github.com/and161185/taskkeeper/internal/token"
)

// bcrypt ignores everything past this many bytes.
const maxPasswordBytes = 72

// AuthService defines registration, login and identity operations.
type AuthService interface {
	// Register creates a new user and signs them in.
	Register(ctx context.Context, name, email, password string) (model.Tokens, model.User, error)
	// Login applies rate limiting by (email, ip) and authenticates the user.
	Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// Authenticate resolves a bearer token to the user it was issued for.
	Authenticate(ctx context.Context, rawToken string) (model.User, error)
	// UpdateProfile replaces name, bio and avatar of userID.
	UpdateProfile(ctx context.Context, userID uuid.UUID, p model.Profile) (model.User, error)
	// ChangePassword swaps the credential after checking the current one.
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

type registerInput struct {
	Name     string `validate:"required,nonul,max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type passwordInput struct {
	CurrentPassword string `validate:"required"`
	NewPassword     string `validate:"required,min=6"`
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	hasher *pkgcrypto.Hasher
	tokens *token.Service
	lim    limiter.Limiter
	val    *Validator
	log    *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, hasher *pkgcrypto.Hasher, tokens *token.Service, lim limiter.Limiter, log *zap.Logger) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{users: users, hasher: hasher, tokens: tokens, lim: lim, val: NewValidator(), log: log}
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates input, stores a bcrypt credential and issues a token.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (model.Tokens, model.User, error) {
	in := registerInput{Name: strings.TrimSpace(name), Email: NormalizeEmail(email), Password: password}
	if err := s.val.Struct(in); err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if len(in.Password) > maxPasswordBytes {
		return model.Tokens{}, model.User{}, errs.Validation("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return model.Tokens{}, model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{ID: uid, Email: in.Email, Name: in.Name, PwdHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Tokens{}, model.User{}, err
	}

	tokens, err := s.issue(u)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tokens, *u, nil
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return model.Tokens{}, model.User{}, errs.Validation("", "email and password are required")
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	var ok bool
	switch {
	case err == nil:
		ok = s.hasher.Verify(ctx, password, u.PwdHash)
	case errors.Is(err, errs.ErrNotFound):
		// run bcrypt anyway so a missing account takes as long as a wrong password
		ok = s.hasher.VerifyMissing(ctx, password)
	default:
		return model.Tokens{}, model.User{}, err
	}

	if !ok {
		blocked, _, ferr := s.lim.Failure(ctx, email, ipHash)
		if ferr != nil {
			s.log.Warn("limiter failure record", zap.Error(ferr))
		}
		if blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		return model.Tokens{}, model.User{}, errs.Unauthorized(errs.ReasonBadCredentials)
	}

	// best-effort
	if err := s.lim.Success(ctx, email, ipHash); err != nil {
		s.log.Warn("limiter reset", zap.Error(err))
	}

	tokens, err := s.issue(u)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tokens, *u, nil
}

// Authenticate verifies rawToken and loads its user. Every rejection is an
// *errs.AuthError carrying the internal reason.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, rawToken string) (model.User, error) {
	if rawToken == "" {
		return model.User{}, errs.Unauthorized(errs.ReasonNoToken)
	}
	id, err := s.tokens.Verify(rawToken)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, id.UserID)
	if errors.Is(err, errs.ErrNotFound) {
		return model.User{}, errs.Unauthorized(errs.ReasonUnknownIdentity)
	}
	if err != nil {
		return model.User{}, err
	}
	if u.CredVer != id.CredVer {
		return model.User{}, errs.Unauthorized(errs.ReasonStaleToken)
	}
	return *u, nil
}

// UpdateProfile validates and stores the new profile.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, p model.Profile) (model.User, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Bio = strings.TrimSpace(p.Bio)
	p.Avatar = strings.TrimSpace(p.Avatar)
	if err := s.val.Struct(p); err != nil {
		return model.User{}, err
	}
	u, err := s.users.UpdateProfile(ctx, userID, p)
	if err != nil {
		return model.User{}, err
	}
	return *u, nil
}

// ChangePassword checks current against the stored credential and replaces it.
// The credential version is bumped, which invalidates every issued token.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	in := passwordInput{CurrentPassword: current, NewPassword: next}
	if err := s.val.Struct(in); err != nil {
		return err
	}
	if len(next) > maxPasswordBytes {
		return errs.Validation("newPassword", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(ctx, current, u.PwdHash) {
		return errs.Unauthorized(errs.ReasonBadCredentials)
	}
	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.users.UpdatePassword(ctx, userID, hash, u.CredVer)
	if errors.Is(err, errs.ErrNotFound) {
		// changed concurrently
		return errs.Unauthorized(errs.ReasonStaleToken)
	}
	return err
}

func (s *AuthServiceImpl) issue(u *model.User) (model.Tokens, error) {
	access, exp, err := s.tokens.Issue(u.ID, u.CredVer)
	if err != nil {
		return model.Tokens{}, fmt.Errorf("issue token: %w", err)
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, nil
}
