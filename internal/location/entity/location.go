package entity

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"
)

// Coordinates are stored as floats; JSON input may carry numbers or numeric strings.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// Location is a community-contributed photography site.
type Location struct {
	ID                int64       `json:"_id,string"`
	Name              string      `json:"name" validate:"required,max=200"`
	Description       string      `json:"description" validate:"max=5000"`
	City              string      `json:"city" validate:"required,max=200"`
	Coordinates       Coordinates `json:"coordinates"`
	BestTimeOfDay     []string    `json:"bestTimeOfDay" validate:"dive,timeofday"`
	Seasons           []string    `json:"seasons" validate:"dive,season"`
	Difficulty        string      `json:"difficulty" validate:"difficulty"`
	Accessibility     string      `json:"accessibility" validate:"accessibility"`
	PhotographyStyles []string    `json:"photographyStyles" validate:"dive,photostyle"`
	SamplePhotoURL    string      `json:"samplePhotoUrl" validate:"omitempty,url,max=2048"`
	CreatedBy         int64       `json:"createdBy,string"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
	Rating            float64     `json:"rating"`
	RatingCount       int         `json:"ratingCount"`
	ShotCount         int         `json:"shotCount"`
}

// Number is a JSON number or numeric string. Valid is false for null,
// non-numeric input and non-finite values.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = Number{}
		return nil
	}
	*n = Number{Value: f, Valid: true}
	return nil
}

// CoordinatesInput is the request form of Coordinates.
type CoordinatesInput struct {
	Latitude  *Number `json:"latitude"`
	Longitude *Number `json:"longitude"`
}

// Parse returns float coordinates, or ok=false when either value is missing
// or not numeric.
func (c *CoordinatesInput) Parse() (Coordinates, bool) {
	if c == nil || c.Latitude == nil || c.Longitude == nil || !c.Latitude.Valid || !c.Longitude.Valid {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: c.Latitude.Value, Longitude: c.Longitude.Value}, true
}

// CreateInput is the body of POST /api/locations.
type CreateInput struct {
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	City              string            `json:"city"`
	Coordinates       *CoordinatesInput `json:"coordinates"`
	BestTimeOfDay     []string          `json:"bestTimeOfDay"`
	Seasons           []string          `json:"seasons"`
	Difficulty        string            `json:"difficulty"`
	Accessibility     string            `json:"accessibility"`
	PhotographyStyles []string          `json:"photographyStyles"`
	SamplePhotoURL    string            `json:"samplePhotoUrl"`
}

// Patch is the body of PUT /api/locations/{id}. Nil fields are left untouched.
type Patch struct {
	Name              *string           `json:"name"`
	Description       *string           `json:"description"`
	City              *string           `json:"city"`
	Coordinates       *CoordinatesInput `json:"coordinates"`
	BestTimeOfDay     *[]string         `json:"bestTimeOfDay"`
	Seasons           *[]string         `json:"seasons"`
	Difficulty        *string           `json:"difficulty"`
	Accessibility     *string           `json:"accessibility"`
	PhotographyStyles *[]string         `json:"photographyStyles"`
	SamplePhotoURL    *string           `json:"samplePhotoUrl"`
}

// Filter narrows GET /api/locations. Empty fields do not filter.
type Filter struct {
	City          string
	Search        string
	Style         string
	TimeOfDay     string
	Season        string
	Difficulty    string
	Accessibility string
}

// Pagination is returned alongside list results.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}
