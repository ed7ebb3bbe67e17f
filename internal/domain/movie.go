package domain

import (
	"strings"
	"time"
)

// MovieStatus is the tab a movie lives under.
type MovieStatus string

const (
	StatusWatched  MovieStatus = "watched"
	StatusWishlist MovieStatus = "wishlist"
)

// Valid reports whether s is a known status.
func (s MovieStatus) Valid() bool {
	return s == StatusWatched || s == StatusWishlist
}

// GenreUnknown is stored when the submitted genre is not in Genres.
const GenreUnknown = "unknown"

// Genres is the fixed genre vocabulary.
var Genres = []string{
	"action",
	"comedy",
	"drama",
	"horror",
	"romance",
	"sci-fi",
	"thriller",
	"fantasy",
	"animation",
	"documentary",
}

// NormalizeGenre lower-cases the input and maps anything outside Genres to GenreUnknown.
func NormalizeGenre(raw string) string {
	g := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range Genres {
		if g == known {
			return g
		}
	}
	return GenreUnknown
}

// ParseLeadActors splits a comma separated list, trimming names and dropping blanks.
func ParseLeadActors(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Movie is a film logged in a space.
type Movie struct {
	ID         string
	SpaceID    string
	Title      string
	Genre      string
	LeadActors []string
	ImageURL   *string
	Status     MovieStatus
	AddedBy    string
	CreatedAt  time.Time

	// AddedByUsername is filled when the movie is read with its author profile.
	AddedByUsername string
}

// MovieWithSummary pairs a movie with its movie-rating aggregate.
type MovieWithSummary struct {
	Movie
	Rating Summary
}
