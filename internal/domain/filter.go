package domain

import (
	"sort"
	"strings"
)

// MovieMatches reports whether a movie belongs on the tab and matches the
// case-insensitive query against title, genre or any lead actor.
func MovieMatches(m Movie, tab MovieStatus, query string) bool {
	if m.Status != tab {
		return false
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(m.Title), q) || strings.Contains(strings.ToLower(m.Genre), q) {
		return true
	}
	for _, actor := range m.LeadActors {
		if strings.Contains(strings.ToLower(actor), q) {
			return true
		}
	}
	return false
}

// FilterMovies keeps movies matching MovieMatches, preserving order.
func FilterMovies(movies []MovieWithSummary, tab MovieStatus, query string) []MovieWithSummary {
	out := make([]MovieWithSummary, 0, len(movies))
	for _, m := range movies {
		if MovieMatches(m.Movie, tab, query) {
			out = append(out, m)
		}
	}
	return out
}

// FilterActors keeps actors whose name contains query, case-insensitively.
func FilterActors(actors []Actor, query string) []Actor {
	q := strings.ToLower(query)
	out := make([]Actor, 0, len(actors))
	for _, a := range actors {
		if strings.Contains(strings.ToLower(a.Name), q) {
			out = append(out, a)
		}
	}
	return out
}

// SortActorsByName orders actors by name ignoring case, falling back to byte order.
func SortActorsByName(actors []ActorWithSummary) {
	sort.SliceStable(actors, func(i, j int) bool {
		a, b := strings.ToLower(actors[i].Name), strings.ToLower(actors[j].Name)
		if a != b {
			return a < b
		}
		return actors[i].Name < actors[j].Name
	})
}
