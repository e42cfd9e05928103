package postgres

import (
	"context"

	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, email, name, bio, avatar, pwd_hash, cred_ver, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Bio, &u.Avatar, &u.PwdHash, &u.CredVer, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, rowErr(err)
	}
	return &u, nil
}

// Create inserts a new user row and fills server-maintained columns.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, email, name, bio, avatar, pwd_hash)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING cred_ver, created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.Email, u.Name, u.Bio, u.Avatar, u.PwdHash).
		Scan(&u.CredVer, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return storageErr(err)
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// UpdateProfile replaces name, bio and avatar.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, p model.Profile) (*model.User, error) {
	const q = `
UPDATE users
SET name=$2, bio=$3, avatar=$4, updated_at=now()
WHERE id=$1
RETURNING ` + userCols
	return scanUser(r.db.Pool.QueryRow(ctx, q, id, p.Name, p.Bio, p.Avatar))
}

// UpdatePassword swaps the hash if cred_ver still equals expectVer.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash []byte, expectVer int64) error {
	const q = `
UPDATE users
SET pwd_hash=$2, cred_ver=cred_ver+1, updated_at=now()
WHERE id=$1 AND cred_ver=$3`
	tag, err := r.db.Pool.Exec(ctx, q, id, hash, expectVer)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
