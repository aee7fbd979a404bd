package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/location/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	defaultDifficulty    = "moderate"
	defaultAccessibility = "moderate"
)

var (
	ErrInvalidID          = apperror.Validation("Invalid location ID")
	ErrNotFound           = apperror.NotFound("Location not found")
	ErrInvalidCoordinates = apperror.Validation("Invalid coordinates format")
)

// Store is the persistence contract for locations. Lookups return
// sql.ErrNoRows for missing rows.
type Store interface {
	Create(ctx context.Context, l *entity.Location) error
	GetByID(ctx context.Context, id int64) (*entity.Location, error)
	List(ctx context.Context, f entity.Filter, limit, offset int) ([]*entity.Location, error)
	Count(ctx context.Context, f entity.Filter) (int, error)
	Update(ctx context.Context, l *entity.Location) (*entity.Location, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// Service encapsulates business logic for locations and depends on a repo.
type Service struct {
	repo Store
	now  func() time.Time
}

func NewService(r Store) *Service {
	return &Service{repo: r, now: time.Now}
}

// Create validates in and stores a new location owned by creatorID.
func (s *Service) Create(ctx context.Context, in entity.CreateInput, creatorID int64) (*entity.Location, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	if in.Name == "" || in.City == "" || in.Coordinates == nil {
		return nil, apperror.Validation("Name, city, and coordinates required")
	}
	coords, ok := in.Coordinates.Parse()
	if !ok {
		return nil, ErrInvalidCoordinates
	}

	now := s.timestamp()
	l := &entity.Location{
		ID:                utilities.NewSnowflakeID(),
		Name:              in.Name,
		Description:       in.Description,
		City:              in.City,
		Coordinates:       coords,
		BestTimeOfDay:     orEmpty(in.BestTimeOfDay),
		Seasons:           orEmpty(in.Seasons),
		Difficulty:        orDefault(in.Difficulty, defaultDifficulty),
		Accessibility:     orDefault(in.Accessibility, defaultAccessibility),
		PhotographyStyles: orEmpty(in.PhotographyStyles),
		SamplePhotoURL:    in.SamplePhotoURL,
		CreatedBy:         creatorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := validation.Struct(l); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, apperror.Server("Failed to create location", fmt.Errorf("insert location: %w", err))
	}
	return l, nil
}

// NormalizePage applies defaults and the page-size ceiling. Pages are capped
// so the resulting offset fits in an int32.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}
	return page, limit
}

// List returns one page of locations matching f with pagination metadata.
func (s *Service) List(ctx context.Context, f entity.Filter, page, limit int) ([]*entity.Location, entity.Pagination, error) {
	page, limit = NormalizePage(page, limit)
	items, err := s.repo.List(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, entity.Pagination{}, apperror.Server("Failed to fetch locations", fmt.Errorf("list locations: %w", err))
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, entity.Pagination{}, apperror.Server("Failed to fetch locations", fmt.Errorf("count locations: %w", err))
	}
	if items == nil {
		items = []*entity.Location{}
	}
	return items, entity.Pagination{
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: (total + limit - 1) / limit,
	}, nil
}

// Get returns a location by its string id.
func (s *Service) Get(ctx context.Context, rawID string) (*entity.Location, error) {
	id, err := utilities.ParseID(rawID)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id int64) (*entity.Location, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperror.Server("Failed to fetch location", fmt.Errorf("get location %d: %w", id, err))
	}
	return l, nil
}

// loadOwned loads a location and checks that callerID created it.
func (s *Service) loadOwned(ctx context.Context, rawID string, callerID int64, action string) (*entity.Location, error) {
	id, err := utilities.ParseID(rawID)
	if err != nil {
		return nil, ErrInvalidID
	}
	l, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.CreatedBy != callerID {
		return nil, apperror.Forbidden("Not authorized to " + action + " this location")
	}
	return l, nil
}

// Update merges the provided fields of p into the location owned by callerID.
func (s *Service) Update(ctx context.Context, rawID string, p entity.Patch, callerID int64) (*entity.Location, error) {
	l, err := s.loadOwned(ctx, rawID, callerID, "update")
	if err != nil {
		return nil, err
	}
	if err := apply(l, p); err != nil {
		return nil, err
	}
	if err := validation.Struct(l); err != nil {
		return nil, err
	}
	prev := l.UpdatedAt
	l.UpdatedAt = s.timestamp()
	if !l.UpdatedAt.After(prev) {
		l.UpdatedAt = prev.Add(time.Microsecond)
	}

	updated, err := s.repo.Update(ctx, l)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.Server("Failed to update location", fmt.Errorf("update location %d: %w", l.ID, err))
	}
	// Nothing came back from the write; read again to tell a vanished row
	// from one that is still there.
	return s.load(ctx, l.ID)
}

// Delete removes the location owned by callerID.
func (s *Service) Delete(ctx context.Context, rawID string, callerID int64) error {
	l, err := s.loadOwned(ctx, rawID, callerID, "delete")
	if err != nil {
		return err
	}
	n, err := s.repo.Delete(ctx, l.ID)
	if err != nil {
		return apperror.Server("Failed to delete location", fmt.Errorf("delete location %d: %w", l.ID, err))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// apply is a shallow merge: each non-nil patch field replaces the stored value.
func apply(l *entity.Location, p entity.Patch) error {
	if p.Coordinates != nil {
		c, ok := p.Coordinates.Parse()
		if !ok {
			return ErrInvalidCoordinates
		}
		l.Coordinates = c
	}
	if p.Name != nil {
		l.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.City != nil {
		l.City = strings.TrimSpace(*p.City)
	}
	if p.BestTimeOfDay != nil {
		l.BestTimeOfDay = orEmpty(*p.BestTimeOfDay)
	}
	if p.Seasons != nil {
		l.Seasons = orEmpty(*p.Seasons)
	}
	if p.Difficulty != nil {
		l.Difficulty = *p.Difficulty
	}
	if p.Accessibility != nil {
		l.Accessibility = *p.Accessibility
	}
	if p.PhotographyStyles != nil {
		l.PhotographyStyles = orEmpty(*p.PhotographyStyles)
	}
	if p.SamplePhotoURL != nil {
		l.SamplePhotoURL = *p.SamplePhotoURL
	}
	return nil
}

// timestamp is now truncated to the precision Postgres stores.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
