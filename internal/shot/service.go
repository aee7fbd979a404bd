package shot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/validation"
)

var (
	ErrNotFound     = apperror.NotFound("Shot not found")
	ErrPrivate      = apperror.Forbidden("This shot is private")
	ErrNotOwner     = apperror.Forbidden("Unauthorized")
	ErrMissingField = apperror.Validation("Location, date, and camera model are required")
)

// dateLayouts are the accepted forms of a shoot date.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// Store is the persistence contract for shots. GetByID returns
// sql.ErrNoRows for a missing shot.
type Store interface {
	Create(ctx context.Context, s *entity.Shot) error
	GetByID(ctx context.Context, id int64) (*entity.Shot, error)
	List(ctx context.Context, f entity.Filter) ([]*entity.Shot, error)
	ListByLocation(ctx context.Context, locationID int64) ([]*entity.Shot, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.Shot, error)
	Update(ctx context.Context, s *entity.Shot) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type Service struct {
	repo Store
	now  func() time.Time
}

func NewService(r Store) *Service {
	return &Service{repo: r, now: time.Now}
}

// ListQuery carries the raw query string filters of GET /api/shots.
type ListQuery struct {
	UserID      string
	LocationID  string
	CameraModel string
	Lens        string
}

// ParseDate accepts RFC 3339 timestamps, datetime-local values and plain
// calendar dates, which are taken as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Create logs a shot for ownerID, snapshotting their current username.
func (s *Service) Create(ctx context.Context, in entity.CreateInput, ownerID int64, ownerUsername string) (*entity.Shot, error) {
	in.CameraModel = strings.TrimSpace(in.CameraModel)
	if strings.TrimSpace(in.LocationID) == "" || strings.TrimSpace(in.Date) == "" || in.CameraModel == "" {
		return nil, ErrMissingField
	}
	locationID, err := utilities.ParseID(strings.TrimSpace(in.LocationID))
	if err != nil {
		return nil, apperror.Validation("Invalid location ID")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, apperror.Validation("Invalid date")
	}

	now := s.timestamp()
	shot := &entity.Shot{
		ID:           utilities.NewSnowflakeID(),
		LocationID:   locationID,
		UserID:       ownerID,
		Username:     ownerUsername,
		Date:         date,
		Weather:      in.Weather,
		Description:  in.Description,
		CameraModel:  in.CameraModel,
		Lens:         in.Lens,
		Aperture:     nonZero(in.Aperture),
		ShutterSpeed: in.ShutterSpeed,
		ISO:          nonZero(in.ISO),
		Photos:       in.Photos,
		IsPrivate:    in.IsPrivate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if shot.Photos == nil {
		shot.Photos = []string{}
	}
	if in.Rating != nil {
		shot.Rating = *in.Rating
	}
	if err := validation.Struct(shot); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, shot); err != nil {
		return nil, apperror.Server("Failed to log shot", fmt.Errorf("insert shot: %w", err))
	}
	return shot, nil
}

// List returns shots matching q. Private shots are included only when the
// requester filters on their own user id. A malformed id filter matches nothing.
func (s *Service) List(ctx context.Context, q ListQuery, requesterID int64) ([]*entity.Shot, error) {
	f := entity.Filter{CameraModel: q.CameraModel, Lens: q.Lens}
	if q.UserID != "" {
		id, err := utilities.ParseID(q.UserID)
		if err != nil {
			return []*entity.Shot{}, nil
		}
		f.UserID = id
		f.IncludePrivate = requesterID != 0 && id == requesterID
	}
	if q.LocationID != "" {
		id, err := utilities.ParseID(q.LocationID)
		if err != nil {
			return []*entity.Shot{}, nil
		}
		f.LocationID = id
	}
	shots, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, apperror.Server("Failed to fetch shots", fmt.Errorf("list shots: %w", err))
	}
	return nonNil(shots), nil
}

func (s *Service) load(ctx context.Context, rawID string) (*entity.Shot, error) {
	id, err := utilities.ParseID(rawID)
	if err != nil {
		return nil, ErrNotFound
	}
	shot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperror.Server("Failed to fetch shot", fmt.Errorf("get shot %d: %w", id, err))
	}
	return shot, nil
}

// Get returns a shot if requesterID may see it.
func (s *Service) Get(ctx context.Context, rawID string, requesterID int64) (*entity.Shot, error) {
	shot, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !shot.VisibleTo(requesterID) {
		return nil, ErrPrivate
	}
	return shot, nil
}

// Update applies p to the shot owned by callerID.
func (s *Service) Update(ctx context.Context, rawID string, p entity.Patch, callerID int64) (*entity.Shot, error) {
	shot, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if shot.UserID != callerID {
		return nil, ErrNotOwner
	}
	apply(shot, p)
	if err := validation.Struct(shot); err != nil {
		return nil, err
	}
	prev := shot.UpdatedAt
	shot.UpdatedAt = s.timestamp()
	if !shot.UpdatedAt.After(prev) {
		shot.UpdatedAt = prev.Add(time.Microsecond)
	}
	n, err := s.repo.Update(ctx, shot)
	if err != nil {
		return nil, apperror.Server("Failed to update shot", fmt.Errorf("update shot %d: %w", shot.ID, err))
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return shot, nil
}

// Delete removes the shot owned by callerID.
func (s *Service) Delete(ctx context.Context, rawID string, callerID int64) error {
	shot, err := s.load(ctx, rawID)
	if err != nil {
		return err
	}
	if shot.UserID != callerID {
		return ErrNotOwner
	}
	n, err := s.repo.Delete(ctx, shot.ID)
	if err != nil {
		return apperror.Server("Failed to delete shot", fmt.Errorf("delete shot %d: %w", shot.ID, err))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByLocation returns the public shots of a location.
func (s *Service) ListByLocation(ctx context.Context, rawLocationID string) ([]*entity.Shot, error) {
	id, err := utilities.ParseID(rawLocationID)
	if err != nil {
		return []*entity.Shot{}, nil
	}
	shots, err := s.repo.ListByLocation(ctx, id)
	if err != nil {
		return nil, apperror.Server("Failed to fetch shots", fmt.Errorf("list shots of location %d: %w", id, err))
	}
	return nonNil(shots), nil
}

// Stats aggregates every shot of a user, private ones included.
func (s *Service) Stats(ctx context.Context, rawUserID string) (entity.Stats, error) {
	id, err := utilities.ParseID(rawUserID)
	if err != nil {
		return Aggregate(nil), nil
	}
	shots, err := s.repo.ListByUser(ctx, id)
	if err != nil {
		return entity.Stats{}, apperror.Server("Failed to compute stats", fmt.Errorf("list shots of user %d: %w", id, err))
	}
	return Aggregate(shots), nil
}

// nonZero treats a zero exposure value as not recorded.
func nonZero[T float64 | int](v *T) *T {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func apply(shot *entity.Shot, p entity.Patch) {
	if p.Weather != nil {
		shot.Weather = *p.Weather
	}
	if p.Description != nil {
		shot.Description = *p.Description
	}
	if p.CameraModel != nil && strings.TrimSpace(*p.CameraModel) != "" {
		shot.CameraModel = strings.TrimSpace(*p.CameraModel)
	}
	if p.Lens != nil {
		shot.Lens = *p.Lens
	}
	if p.Aperture.Set {
		shot.Aperture = nonZero(p.Aperture.Value)
	}
	if p.ShutterSpeed != nil {
		shot.ShutterSpeed = *p.ShutterSpeed
	}
	if p.ISO.Set {
		shot.ISO = nonZero(p.ISO.Value)
	}
	if p.Photos != nil {
		shot.Photos = nonNilStrings(*p.Photos)
	}
	if p.Rating != nil {
		shot.Rating = *p.Rating
	}
	if p.IsPrivate != nil {
		shot.IsPrivate = *p.IsPrivate
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func nonNil(shots []*entity.Shot) []*entity.Shot {
	if shots == nil {
		return []*entity.Shot{}
	}
	return shots
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
