package entity

import "time"

// User represents an account row in the `users` table.
type User struct {
	ID           int64      `db:"id" json:"_id,string"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Bio          string     `db:"bio" json:"bio"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// PublicView is the projection returned to the client after login.
type PublicView struct {
	ID       int64  `json:"id,string"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u *User) Public() PublicView {
	return PublicView{ID: u.ID, Username: u.Username, Email: u.Email}
}

// ProfilePatch holds the optional profile fields; nil leaves a field untouched.
type ProfilePatch struct {
	Email *string `json:"email" validate:"omitempty,email,max=254"`
	Bio   *string `json:"bio" validate:"omitempty,max=2000"`
}
