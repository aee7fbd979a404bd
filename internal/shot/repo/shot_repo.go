package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-ohsnap/internal/shot/entity"
	"github.com/ovaphlow/pitchfork/service-ohsnap/pkg/database"
)

// ShotRepo stores shots in Postgres.
type ShotRepo struct {
	db *sqlx.DB
}

func NewShotRepo(db *sqlx.DB) *ShotRepo { return &ShotRepo{db: db} }

// EnsureTable creates the shots table and its lookup indexes.
func (r *ShotRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS shots (
  id BIGINT PRIMARY KEY,
  location_id BIGINT NOT NULL,
  user_id BIGINT NOT NULL,
  username TEXT NOT NULL,
  shot_date TIMESTAMPTZ NOT NULL,
  weather TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  camera_model TEXT NOT NULL,
  lens TEXT NOT NULL DEFAULT '',
  aperture DOUBLE PRECISION,
  shutter_speed TEXT NOT NULL DEFAULT '',
  iso INT,
  photos TEXT[] NOT NULL DEFAULT '{}',
  rating DOUBLE PRECISION NOT NULL DEFAULT 0,
  is_private BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shots_user ON shots(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_shots_location ON shots(location_id) WHERE NOT is_private;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type row struct {
	ID           int64           `db:"id"`
	LocationID   int64           `db:"location_id"`
	UserID       int64           `db:"user_id"`
	Username     string          `db:"username"`
	Date         time.Time       `db:"shot_date"`
	Weather      string          `db:"weather"`
	Description  string          `db:"description"`
	CameraModel  string          `db:"camera_model"`
	Lens         string          `db:"lens"`
	Aperture     sql.NullFloat64 `db:"aperture"`
	ShutterSpeed string          `db:"shutter_speed"`
	ISO          sql.NullInt32   `db:"iso"`
	Photos       pq.StringArray  `db:"photos"`
	Rating       float64         `db:"rating"`
	IsPrivate    bool            `db:"is_private"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

const columns = `id, location_id, user_id, username, shot_date, weather, description,
	camera_model, lens, aperture, shutter_speed, iso, photos, rating, is_private,
	created_at, updated_at`

func fromEntity(s *entity.Shot) row {
	rw := row{
		ID:           s.ID,
		LocationID:   s.LocationID,
		UserID:       s.UserID,
		Username:     s.Username,
		Date:         s.Date,
		Weather:      s.Weather,
		Description:  s.Description,
		CameraModel:  s.CameraModel,
		Lens:         s.Lens,
		ShutterSpeed: s.ShutterSpeed,
		Photos:       pq.StringArray(s.Photos),
		Rating:       s.Rating,
		IsPrivate:    s.IsPrivate,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if rw.Photos == nil {
		rw.Photos = pq.StringArray{}
	}
	if s.Aperture != nil {
		rw.Aperture = sql.NullFloat64{Float64: *s.Aperture, Valid: true}
	}
	if s.ISO != nil {
		rw.ISO = sql.NullInt32{Int32: int32(*s.ISO), Valid: true}
	}
	return rw
}

func (r row) toEntity() *entity.Shot {
	s := &entity.Shot{
		ID:           r.ID,
		LocationID:   r.LocationID,
		UserID:       r.UserID,
		Username:     r.Username,
		Date:         r.Date,
		Weather:      r.Weather,
		Description:  r.Description,
		CameraModel:  r.CameraModel,
		Lens:         r.Lens,
		ShutterSpeed: r.ShutterSpeed,
		Photos:       []string(r.Photos),
		Rating:       r.Rating,
		IsPrivate:    r.IsPrivate,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if s.Photos == nil {
		s.Photos = []string{}
	}
	if r.Aperture.Valid {
		v := r.Aperture.Float64
		s.Aperture = &v
	}
	if r.ISO.Valid {
		v := int(r.ISO.Int32)
		s.ISO = &v
	}
	return s
}

func collect(rows []row) []*entity.Shot {
	out := make([]*entity.Shot, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.toEntity())
	}
	return out
}

func (r *ShotRepo) Create(ctx context.Context, s *entity.Shot) error {
	const q = `INSERT INTO shots (` + columns + `) VALUES (
		:id, :location_id, :user_id, :username, :shot_date, :weather, :description,
		:camera_model, :lens, :aperture, :shutter_speed, :iso, :photos, :rating, :is_private,
		:created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, q, fromEntity(s))
	return err
}

// GetByID returns the shot or sql.ErrNoRows.
func (r *ShotRepo) GetByID(ctx context.Context, id int64) (*entity.Shot, error) {
	var rw row
	if err := r.db.GetContext(ctx, &rw, `SELECT `+columns+` FROM shots WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return rw.toEntity(), nil
}

// BuildWhere renders f as a conjunctive WHERE clause with positional args.
func BuildWhere(f entity.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.IncludePrivate {
		conds = append(conds, `NOT is_private`)
	}
	if f.UserID != 0 {
		conds = append(conds, `user_id = `+next(f.UserID))
	}
	if f.LocationID != 0 {
		conds = append(conds, `location_id = `+next(f.LocationID))
	}
	if f.CameraModel != "" {
		conds = append(conds, `camera_model ILIKE `+next(database.Contains(f.CameraModel))+` ESCAPE '\'`)
	}
	if f.Lens != "" {
		conds = append(conds, `lens ILIKE `+next(database.Contains(f.Lens))+` ESCAPE '\'`)
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), args
}

// List returns matching shots, most recent shoot date first.
func (r *ShotRepo) List(ctx context.Context, f entity.Filter) ([]*entity.Shot, error) {
	where, args := BuildWhere(f)
	var rows []row
	q := `SELECT ` + columns + ` FROM shots WHERE ` + where + ` ORDER BY shot_date DESC, id DESC`
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return collect(rows), nil
}

// ListByLocation returns the public shots of a location, best rated first.
func (r *ShotRepo) ListByLocation(ctx context.Context, locationID int64) ([]*entity.Shot, error) {
	var rows []row
	q := `SELECT ` + columns + ` FROM shots
		WHERE location_id = $1 AND NOT is_private
		ORDER BY rating DESC, shot_date DESC, id DESC`
	if err := r.db.SelectContext(ctx, &rows, q, locationID); err != nil {
		return nil, err
	}
	return collect(rows), nil
}

// ListByUser returns every shot of a user, private ones included, in the
// order they were logged.
func (r *ShotRepo) ListByUser(ctx context.Context, userID int64) ([]*entity.Shot, error) {
	var rows []row
	q := `SELECT ` + columns + ` FROM shots WHERE user_id = $1 ORDER BY created_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	return collect(rows), nil
}

// Update writes the mutable columns of s, guarded by its owner.
// It returns the number of rows changed.
func (r *ShotRepo) Update(ctx context.Context, s *entity.Shot) (int64, error) {
	const q = `UPDATE shots SET
		weather = :weather, description = :description, camera_model = :camera_model,
		lens = :lens, aperture = :aperture, shutter_speed = :shutter_speed, iso = :iso,
		photos = :photos, rating = :rating, is_private = :is_private, updated_at = :updated_at
	WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, q, fromEntity(s))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the shot and returns the number of rows deleted.
func (r *ShotRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shots WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
