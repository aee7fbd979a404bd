package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
)

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller identity or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}

// Authenticate attaches the caller identity when the request carries a valid
// session cookie. Requests without one continue anonymously.
func (m *Manager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := m.readCookie(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		s, err := m.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrBadCookie) || errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
				m.clearCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			apperror.Write(w, m.logger, apperror.Server("Server error", err))
			return
		}
		if err := m.Extend(r.Context(), w, s); err != nil {
			m.logger.Warnw("extend session failed", "session", s.ID, "err", err)
		}
		id := &Identity{UserID: s.UserID, Username: s.Username, Email: s.Email, SessionID: s.ID}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAuth rejects requests without an identity with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			apperror.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
