package domain

import (
	"errors"
	"math"
)

// ErrInvalidRating is returned for values outside 0..10 or off the half-point grid.
var ErrInvalidRating = errors.New("domain: rating must be between 0 and 10 in steps of 0.5")

const (
	MinRating = 0.0
	MaxRating = 10.0
)

// RatingKind identifies which family of rating rows a value belongs to.
type RatingKind string

const (
	RatingKindMovie RatingKind = "movie"
	RatingKindActor RatingKind = "actor"
	RatingKindMusic RatingKind = "music"
)

// Summary is the aggregate shown next to a rated subject.
type Summary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// RatingRow is a single user's value for a subject. K is the subject key:
// a movie id for movie and music ratings, an ActorKey or an actor name for
// actor ratings.
type RatingRow[K comparable] struct {
	Subject K
	UserID  string
	Value   float64
}

// ActorKey addresses an actor rating within a movie. Actors are keyed by
// display name, so two people sharing a name share ratings.
type ActorKey struct {
	MovieID   string
	ActorName string
}

// ValidateRating checks the 0..10 half-step scale.
func ValidateRating(v float64) error {
	if math.IsNaN(v) || v < MinRating || v > MaxRating {
		return ErrInvalidRating
	}
	if v*2 != math.Trunc(v*2) {
		return ErrInvalidRating
	}
	return nil
}

// RoundHalf rounds to the nearest 0.5 with halves going up.
func RoundHalf(v float64) float64 {
	return math.Floor(v*2+0.5) / 2
}

// Summarize computes count and the half-point rounded mean.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Summary{
		Average: RoundHalf(sum / float64(len(values))),
		Count:   len(values),
	}
}

// SummarizeBy groups rows by subject and summarizes each group.
func SummarizeBy[K comparable](rows []RatingRow[K]) map[K]Summary {
	grouped := make(map[K][]float64)
	for _, row := range rows {
		grouped[row.Subject] = append(grouped[row.Subject], row.Value)
	}
	out := make(map[K]Summary, len(grouped))
	for subject, values := range grouped {
		out[subject] = Summarize(values)
	}
	return out
}

// ValuesFor returns the user's value per subject. Missing subjects are absent.
func ValuesFor[K comparable](rows []RatingRow[K], userID string) map[K]float64 {
	out := make(map[K]float64)
	for _, row := range rows {
		if row.UserID == userID {
			out[row.Subject] = row.Value
		}
	}
	return out
}
