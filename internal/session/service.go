package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/utilities"
)

const defaultSecret = "ohsnap-secret-key"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrBadCookie       = errors.New("invalid session cookie")
)

// Store persists sessions. Get returns sql.ErrNoRows for unknown ids.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Touch(ctx context.Context, id string, accessedAt, expiresAt time.Time) error
	UpdateEmail(ctx context.Context, id, email string) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Config struct {
	Secret     []byte
	TTL        time.Duration
	CookieName string
	Secure     bool
	SameSite   http.SameSite
}

// ConfigFromEnv reads session settings. Production (APP_ENV=production)
// switches the cookie to Secure with SameSite=None for cross-site SPAs.
func ConfigFromEnv() Config {
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = defaultSecret
	}
	ttl := 7 * 24 * time.Hour
	if v, err := strconv.Atoi(os.Getenv("SESSION_TTL_HOURS")); err == nil && v > 0 {
		ttl = time.Duration(v) * time.Hour
	}
	cfg := Config{
		Secret:     []byte(secret),
		TTL:        ttl,
		CookieName: "ohsnap.sid",
		SameSite:   http.SameSiteLaxMode,
	}
	if os.Getenv("APP_ENV") == "production" {
		cfg.Secure = true
		cfg.SameSite = http.SameSiteNoneMode
	}
	return cfg
}

// UsesDefaultSecret reports whether no SESSION_SECRET was configured.
func (c Config) UsesDefaultSecret() bool {
	return string(c.Secret) == defaultSecret
}

// Manager opens, resolves and destroys sessions and owns the session cookie.
type Manager struct {
	store  Store
	cfg    Config
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewManager(store Store, cfg Config, logger *zap.SugaredLogger) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "ohsnap.sid"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	return &Manager{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Open persists a new session for the user and sets the cookie on w.
func (m *Manager) Open(ctx context.Context, w http.ResponseWriter, userID int64, username, email string) (*Session, error) {
	now := m.now().UTC()
	s := &Session{
		ID:             utilities.NewKSUID(),
		UserID:         userID,
		Username:       username,
		Email:          email,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(m.cfg.TTL),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := m.setCookie(w, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Resolve loads the live session for a cookie value.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	id, err := m.parseToken(token)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if s.Expired(m.now()) {
		if delErr := m.store.Delete(ctx, s.ID); delErr != nil {
			m.logger.Warnw("delete expired session failed", "err", delErr)
		}
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Extend slides the session expiry and refreshes the cookie.
func (m *Manager) Extend(ctx context.Context, w http.ResponseWriter, s *Session) error {
	now := m.now().UTC()
	s.LastAccessedAt = now
	s.ExpiresAt = now.Add(m.cfg.TTL)
	if err := m.store.Touch(ctx, s.ID, s.LastAccessedAt, s.ExpiresAt); err != nil {
		return err
	}
	return m.setCookie(w, s)
}

// Destroy deletes the session and clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.clearCookie(w)
	return nil
}

// UpdateEmail mirrors a profile email change into the live session.
func (m *Manager) UpdateEmail(ctx context.Context, id, email string) error {
	return m.store.UpdateEmail(ctx, id, email)
}

// StartCleanup purges expired sessions every interval until ctx is done.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.cleanup(ctx)
			}
		}
	}()
}

func (m *Manager) cleanup(ctx context.Context) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		m.logger.Warnw("session cleanup failed", "err", err)
		return
	}
	if n > 0 {
		m.logger.Debugw("purged expired sessions", "count", n)
	}
}

func (m *Manager) signToken(s *Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(s.LastAccessedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

// parseToken verifies the cookie signature and returns the session id.
func (m *Manager) parseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", ErrBadCookie
	}
	if !utilities.IsKSUID(claims.ID) {
		return "", ErrBadCookie
	}
	return claims.ID, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, s *Session) error {
	v, err := m.signToken(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    v,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: m.cfg.SameSite,
		MaxAge:   int(m.cfg.TTL.Seconds()),
	})
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: m.cfg.SameSite,
		MaxAge:   -1,
	})
}

func (m *Manager) readCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
