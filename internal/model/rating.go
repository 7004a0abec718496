package model

import (
	"errors"
	"time"
)

// Rating is one identity's endorsement of a post or comment on the 0-11
// scale. Keyed by rater: a new rating from the same rater replaces the
// prior value, no history is kept.
type Rating struct {
	RaterID   string    `json:"rater_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating scale
const (
	MinRating = 0
	MaxRating = 11

	// Scale anchors, shown as the rating legend.
	RatingLegendMin = "No relevance"
	RatingLegendMax = "Guaranteed best future"
)

// ErrRatingOutOfRange is returned for a rating value outside [MinRating, MaxRating].
// Non-integer values never reach this layer; the scale is integral by type.
var ErrRatingOutOfRange = errors.New("rating out of range")

// ValidateRating checks a rating value before any write is attempted.
func ValidateRating(value int) error {
	if value < MinRating || value > MaxRating {
		return ErrRatingOutOfRange
	}
	return nil
}
