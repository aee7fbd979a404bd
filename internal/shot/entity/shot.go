package entity

import (
	"bytes"
	"encoding/json"
	"time"
)

// Shot is one logged photo shoot at a location.
type Shot struct {
	ID           int64     `json:"_id,string"`
	LocationID   int64     `json:"locationId,string"`
	UserID       int64     `json:"userId,string"`
	Username     string    `json:"username"`
	Date         time.Time `json:"date"`
	Weather      string    `json:"weather"`
	Description  string    `json:"description" validate:"max=5000"`
	CameraModel  string    `json:"cameraModel" validate:"required,max=200"`
	Lens         string    `json:"lens" validate:"max=200"`
	Aperture     *float64  `json:"aperture" validate:"omitempty,gt=0"`
	ShutterSpeed string    `json:"shutterSpeed"`
	ISO          *int      `json:"iso" validate:"omitempty,min=0,max=1000000"`
	Photos       []string  `json:"photos" validate:"dive,url"`
	Rating       float64   `json:"rating" validate:"min=0,max=5"`
	IsPrivate    bool      `json:"isPrivate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VisibleTo reports whether userID may read the shot. Zero is anonymous.
func (s *Shot) VisibleTo(userID int64) bool {
	return !s.IsPrivate || (userID != 0 && s.UserID == userID)
}

// CreateInput is the body of POST /api/shots.
type CreateInput struct {
	LocationID   string   `json:"locationId"`
	Date         string   `json:"date"`
	Weather      string   `json:"weather"`
	Description  string   `json:"description"`
	CameraModel  string   `json:"cameraModel"`
	Lens         string   `json:"lens"`
	Aperture     *float64 `json:"aperture"`
	ShutterSpeed string   `json:"shutterSpeed"`
	ISO          *int     `json:"iso"`
	Photos       []string `json:"photos"`
	Rating       *float64 `json:"rating"`
	IsPrivate    bool     `json:"isPrivate"`
}

// Nullable tracks whether a JSON key was present, so an explicit null can
// clear a value while an absent key leaves it alone.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Patch is the body of PUT /api/shots/{id}. Location, owner and date are
// fixed once logged.
type Patch struct {
	Weather      *string           `json:"weather"`
	Description  *string           `json:"description"`
	CameraModel  *string           `json:"cameraModel"`
	Lens         *string           `json:"lens"`
	Aperture     Nullable[float64] `json:"aperture"`
	ShutterSpeed *string           `json:"shutterSpeed"`
	ISO          Nullable[int]     `json:"iso"`
	Photos       *[]string         `json:"photos"`
	Rating       *float64          `json:"rating"`
	IsPrivate    *bool             `json:"isPrivate"`
}

// Filter narrows GET /api/shots. Zero ids do not filter.
type Filter struct {
	UserID      int64
	LocationID  int64
	CameraModel string
	Lens        string
	// IncludePrivate lifts the public-only restriction.
	IncludePrivate bool
}

// LocationCount is one entry of Stats.TopLocations.
type LocationCount struct {
	LocationID int64 `json:"locationId,string"`
	Count      int   `json:"count"`
}

// Stats summarises a photographer's shot history.
type Stats struct {
	TotalShots     int             `json:"totalShots"`
	AverageRating  float64         `json:"averageRating"`
	FavoriteCamera *string         `json:"favoriteCamera"`
	FavoriteLens   *string         `json:"favoriteLens"`
	TopLocations   []LocationCount `json:"topLocations"`
}
