package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/location/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/database"
)

// LocationRepo stores locations in Postgres.
type LocationRepo struct {
	db *sqlx.DB
}

func NewLocationRepo(db *sqlx.DB) *LocationRepo { return &LocationRepo{db: db} }

// EnsureTable creates the locations table and its lookup indexes.
func (r *LocationRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS locations (
  id BIGINT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL,
  latitude DOUBLE PRECISION NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  best_time_of_day TEXT[] NOT NULL DEFAULT '{}',
  seasons TEXT[] NOT NULL DEFAULT '{}',
  difficulty TEXT NOT NULL DEFAULT 'moderate',
  accessibility TEXT NOT NULL DEFAULT 'moderate',
  photography_styles TEXT[] NOT NULL DEFAULT '{}',
  sample_photo_url TEXT NOT NULL DEFAULT '',
  created_by BIGINT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  rating DOUBLE PRECISION NOT NULL DEFAULT 0,
  rating_count INT NOT NULL DEFAULT 0,
  shot_count INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_locations_city ON locations(city);
CREATE INDEX IF NOT EXISTS idx_locations_created_by ON locations(created_by);
CREATE INDEX IF NOT EXISTS idx_locations_styles ON locations USING GIN (photography_styles);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// row is the flat table shape of a location.
type row struct {
	ID                int64          `db:"id"`
	Name              string         `db:"name"`
	Description       string         `db:"description"`
	City              string         `db:"city"`
	Latitude          float64        `db:"latitude"`
	Longitude         float64        `db:"longitude"`
	BestTimeOfDay     pq.StringArray `db:"best_time_of_day"`
	Seasons           pq.StringArray `db:"seasons"`
	Difficulty        string         `db:"difficulty"`
	Accessibility     string         `db:"accessibility"`
	PhotographyStyles pq.StringArray `db:"photography_styles"`
	SamplePhotoURL    string         `db:"sample_photo_url"`
	CreatedBy         int64          `db:"created_by"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
	Rating            float64        `db:"rating"`
	RatingCount       int            `db:"rating_count"`
	ShotCount         int            `db:"shot_count"`
}

const columns = `id, name, description, city, latitude, longitude, best_time_of_day, seasons,
	difficulty, accessibility, photography_styles, sample_photo_url, created_by,
	created_at, updated_at, rating, rating_count, shot_count`

func fromEntity(l *entity.Location) row {
	return row{
		ID:                l.ID,
		Name:              l.Name,
		Description:       l.Description,
		City:              l.City,
		Latitude:          l.Coordinates.Latitude,
		Longitude:         l.Coordinates.Longitude,
		BestTimeOfDay:     pq.StringArray(nonNil(l.BestTimeOfDay)),
		Seasons:           pq.StringArray(nonNil(l.Seasons)),
		Difficulty:        l.Difficulty,
		Accessibility:     l.Accessibility,
		PhotographyStyles: pq.StringArray(nonNil(l.PhotographyStyles)),
		SamplePhotoURL:    l.SamplePhotoURL,
		CreatedBy:         l.CreatedBy,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
		Rating:            l.Rating,
		RatingCount:       l.RatingCount,
		ShotCount:         l.ShotCount,
	}
}

func (r row) toEntity() *entity.Location {
	return &entity.Location{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		City:              r.City,
		Coordinates:       entity.Coordinates{Latitude: r.Latitude, Longitude: r.Longitude},
		BestTimeOfDay:     nonNil(r.BestTimeOfDay),
		Seasons:           nonNil(r.Seasons),
		Difficulty:        r.Difficulty,
		Accessibility:     r.Accessibility,
		PhotographyStyles: nonNil(r.PhotographyStyles),
		SamplePhotoURL:    r.SamplePhotoURL,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Rating:            r.Rating,
		RatingCount:       r.RatingCount,
		ShotCount:         r.ShotCount,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *LocationRepo) Create(ctx context.Context, l *entity.Location) error {
	const q = `INSERT INTO locations (` + columns + `) VALUES (
		:id, :name, :description, :city, :latitude, :longitude, :best_time_of_day, :seasons,
		:difficulty, :accessibility, :photography_styles, :sample_photo_url, :created_by,
		:created_at, :updated_at, :rating, :rating_count, :shot_count)`
	_, err := r.db.NamedExecContext(ctx, q, fromEntity(l))
	return err
}

// GetByID returns the location or sql.ErrNoRows.
func (r *LocationRepo) GetByID(ctx context.Context, id int64) (*entity.Location, error) {
	var rw row
	if err := r.db.GetContext(ctx, &rw, `SELECT `+columns+` FROM locations WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return rw.toEntity(), nil
}

// BuildWhere renders f as a conjunctive WHERE clause with positional args.
// An empty filter yields "TRUE".
func BuildWhere(f entity.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.City != "" {
		conds = append(conds, `city ILIKE `+next(database.Contains(f.City))+` ESCAPE '\'`)
	}
	if f.Search != "" {
		p := next(database.Contains(f.Search))
		conds = append(conds, `(name ILIKE `+p+` ESCAPE '\' OR description ILIKE `+p+` ESCAPE '\')`)
	}
	if f.Style != "" {
		conds = append(conds, next(f.Style)+` = ANY(photography_styles)`)
	}
	if f.TimeOfDay != "" {
		conds = append(conds, next(f.TimeOfDay)+` = ANY(best_time_of_day)`)
	}
	if f.Season != "" {
		conds = append(conds, next(f.Season)+` = ANY(seasons)`)
	}
	if f.Difficulty != "" {
		conds = append(conds, `difficulty = `+next(f.Difficulty))
	}
	if f.Accessibility != "" {
		conds = append(conds, `accessibility = `+next(f.Accessibility))
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// List returns one page of matching locations, newest first.
func (r *LocationRepo) List(ctx context.Context, f entity.Filter, limit, offset int) ([]*entity.Location, error) {
	where, args := BuildWhere(f)
	q := fmt.Sprintf(`SELECT %s FROM locations WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		columns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]*entity.Location, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.toEntity())
	}
	return out, nil
}

// Count returns the number of locations matching f.
func (r *LocationRepo) Count(ctx context.Context, f entity.Filter) (int, error) {
	where, args := BuildWhere(f)
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM locations WHERE `+where, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// Update writes the mutable columns of l, guarded by its creator, and returns
// the stored row. sql.ErrNoRows means the row was gone or changed hands.
func (r *LocationRepo) Update(ctx context.Context, l *entity.Location) (*entity.Location, error) {
	q := `UPDATE locations SET
		name = :name, description = :description, city = :city,
		latitude = :latitude, longitude = :longitude,
		best_time_of_day = :best_time_of_day, seasons = :seasons,
		difficulty = :difficulty, accessibility = :accessibility,
		photography_styles = :photography_styles, sample_photo_url = :sample_photo_url,
		updated_at = :updated_at
	WHERE id = :id AND created_by = :created_by
	RETURNING ` + columns
	q, args, err := r.db.BindNamed(q, fromEntity(l))
	if err != nil {
		return nil, err
	}
	var rw row
	if err := r.db.GetContext(ctx, &rw, q, args...); err != nil {
		return nil, err
	}
	return rw.toEntity(), nil
}

// Delete removes the location and returns the number of rows deleted.
func (r *LocationRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
