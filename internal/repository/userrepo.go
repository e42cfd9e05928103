// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/taskkeeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to registered users.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateProfile replaces name, bio and avatar and returns the updated user.
	UpdateProfile(ctx context.Context, id uuid.UUID, p model.Profile) (*model.User, error)
	// UpdatePassword stores a new hash and bumps the credential version, but only
	// if the stored version still equals expectVer.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash []byte, expectVer int64) error
}
