package session

import "time"

// Session is the server-side record behind a browser's session cookie.
type Session struct {
	ID             string    `db:"id"`
	UserID         int64     `db:"user_id"`
	Username       string    `db:"username"`
	Email          string    `db:"email"`
	CreatedAt      time.Time `db:"created_at"`
	LastAccessedAt time.Time `db:"last_accessed_at"`
	ExpiresAt      time.Time `db:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID    int64
	Username  string
	Email     string
	SessionID string
}
