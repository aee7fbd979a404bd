package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/session"
)

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// EnsureTable creates the sessions table if it does not already exist.
func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL,
  username TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *SessionRepo) Save(ctx context.Context, s *session.Session) error {
	const q = `INSERT INTO sessions (id, user_id, username, email, created_at, last_accessed_at, expires_at)
		VALUES (:id, :user_id, :username, :email, :created_at, :last_accessed_at, :expires_at)`
	_, err := r.db.NamedExecContext(ctx, q, s)
	return err
}

// Get returns the session or sql.ErrNoRows.
func (r *SessionRepo) Get(ctx context.Context, id string) (*session.Session, error) {
	const q = `SELECT id, user_id, username, email, created_at, last_accessed_at, expires_at FROM sessions WHERE id = $1`
	var s session.Session
	if err := r.db.GetContext(ctx, &s, q, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) Touch(ctx context.Context, id string, accessedAt, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_accessed_at = $2, expires_at = $3 WHERE id = $1`, id, accessedAt, expiresAt)
	return err
}

func (r *SessionRepo) UpdateEmail(ctx context.Context, id, email string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET email = $2 WHERE id = $1`, id, email)
	return err
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpired removes sessions that expired before now and returns how many.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
