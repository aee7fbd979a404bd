package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/user/entity"
)

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGINT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  bio TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const userColumns = `id, username, email, password_hash, bio, created_at, updated_at`

// Create inserts a new user row. The id is assigned by the caller.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, username, email, password_hash, bio, created_at)
		VALUES (:id, :username, :email, :password_hash, :bio, :created_at)`
	_, err := r.db.NamedExecContext(ctx, q, u)
	return err
}

// GetByUsername fetches by username (case-sensitive) or returns sql.ErrNoRows.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username=$1`, username); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile applies the non-nil patch fields and stamps updated_at.
// Returns the number of rows touched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, p entity.ProfilePatch, at time.Time) (int64, error) {
	const q = `UPDATE users SET
		email = COALESCE($2, email),
		bio = COALESCE($3, bio),
		updated_at = $4
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, p.Email, p.Bio, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash=$2 WHERE id=$1`, id, hash)
	return err
}
