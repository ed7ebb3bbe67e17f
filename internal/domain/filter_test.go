package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMovies(t *testing.T) {
	movies := []MovieWithSummary{
		{Movie: Movie{ID: "1", Title: "Cast Away", Genre: "drama", LeadActors: []string{"Tom Hanks"}, Status: StatusWishlist}},
		{Movie: Movie{ID: "2", Title: "Big", Genre: "comedy", LeadActors: []string{"Tom Hanks"}, Status: StatusWatched}},
		{Movie: Movie{ID: "3", Title: "Alien", Genre: "sci-fi", LeadActors: []string{"Sigourney Weaver"}, Status: StatusWishlist}},
		{Movie: Movie{ID: "4", Title: "Tomorrowland", Genre: "sci-fi", Status: StatusWishlist}},
	}

	ids := func(in []MovieWithSummary) []string {
		out := make([]string, 0, len(in))
		for _, m := range in {
			out = append(out, m.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "4"}, ids(FilterMovies(movies, StatusWishlist, "tom")))
	assert.Equal(t, []string{"2"}, ids(FilterMovies(movies, StatusWatched, "TOM")))
	assert.Equal(t, []string{"3", "4"}, ids(FilterMovies(movies, StatusWishlist, "SCI")))
	assert.Equal(t, []string{"1", "3", "4"}, ids(FilterMovies(movies, StatusWishlist, "")))
	assert.Empty(t, FilterMovies(movies, StatusWatched, "weaver"))
}

func TestFilterAndSortActors(t *testing.T) {
	actors := []Actor{{Name: "meg Ryan"}, {Name: "Tom Hanks"}, {Name: "Tom Cruise"}, {Name: "Anne Hathaway"}}

	assert.Len(t, FilterActors(actors, "TOM"), 2)
	assert.Len(t, FilterActors(actors, ""), 4)

	withSummary := make([]ActorWithSummary, 0, len(actors))
	for _, a := range actors {
		withSummary = append(withSummary, ActorWithSummary{Actor: a})
	}
	SortActorsByName(withSummary)
	got := make([]string, 0, len(withSummary))
	for _, a := range withSummary {
		got = append(got, a.Name)
	}
	assert.Equal(t, []string{"Anne Hathaway", "meg Ryan", "Tom Cruise", "Tom Hanks"}, got)
}
