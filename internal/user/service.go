package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/validation"
)

// MinBcryptCost is the lowest cost accepted from configuration.
const MinBcryptCost = 10

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return MinBcryptCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash reports whether hash was produced with a lower cost than configured.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return c < b.cost()
}

// HasherFromEnv builds a bcrypt hasher from BCRYPT_COST, never below MinBcryptCost.
func HasherFromEnv() BcryptHasher {
	cost := MinBcryptCost
	if v, err := strconv.Atoi(os.Getenv("BCRYPT_COST")); err == nil && v > cost && v <= bcrypt.MaxCost {
		cost = v
	}
	return BcryptHasher{Cost: cost}
}

// Store is the credential store used by UserService.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id int64, p entity.ProfilePatch, at time.Time) (int64, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// UserService orchestrates signup, login and profile updates.
type UserService struct {
	repo   Store
	hasher PasswordHasher
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewUserService(r Store, hasher PasswordHasher, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: MinBcryptCost}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{repo: r, hasher: hasher, logger: logger, now: time.Now}
}

var (
	ErrBadCredentials = apperror.Auth("Invalid credentials")
	ErrUsernameTaken  = apperror.Conflict("Username already exists")
)

// SignupInput is the signup request body.
type SignupInput struct {
	Username string `json:"username" validate:"max=64"`
	Email    string `json:"email" validate:"email,max=254"`
	Password string `json:"password" validate:"max=72"`
}

// Signup validates the input, checks username availability and stores the
// user with a bcrypt hash and an empty bio.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*entity.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperror.Validation("All fields are required")
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	// the tag above counts runes; bcrypt counts bytes
	if len(in.Password) > MaxPasswordBytes {
		return nil, apperror.Validation(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}

	if _, err := s.repo.GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.Server("Server error", fmt.Errorf("lookup username: %w", err))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.Server("Server error", fmt.Errorf("hash password: %w", err))
	}
	u := &entity.User{
		ID:           utilities.NewSnowflakeID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Bio:          "",
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, apperror.Server("Server error", fmt.Errorf("insert user: %w", err))
	}
	return u, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords produce the same error to avoid user enumeration.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	if username == "" || password == "" {
		return nil, apperror.Validation("All fields are required")
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, apperror.Server("Server error", fmt.Errorf("lookup user: %w", err))
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}

	// upgrade hashes created with an older, cheaper cost
	if s.hasher.NeedsRehash(u.PasswordHash) {
		newHash, hErr := s.hasher.Hash(password)
		if hErr == nil {
			hErr = s.repo.UpdatePassword(ctx, u.ID, newHash)
		}
		if hErr != nil {
			s.logger.Warnw("rehash password failed", "user_id", u.ID, "err", hErr)
		}
	}
	return u, nil
}

// UpdateProfile applies a partial profile update for userID. An empty email
// is treated as absent; an explicit empty bio clears the bio.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, p entity.ProfilePatch) (entity.ProfilePatch, error) {
	if p.Email != nil {
		e := strings.TrimSpace(*p.Email)
		if e == "" {
			p.Email = nil
		} else {
			p.Email = &e
		}
	}
	if err := validation.Struct(&p); err != nil {
		return p, err
	}
	n, err := s.repo.UpdateProfile(ctx, userID, p, s.now().UTC())
	if err != nil {
		return p, apperror.Server("Server error", fmt.Errorf("update profile: %w", err))
	}
	if n == 0 {
		return p, apperror.NotFound("User not found")
	}
	return p, nil
}
