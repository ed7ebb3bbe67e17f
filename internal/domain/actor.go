package domain

import "time"

// Actor is a person tracked in a space. Name uniqueness is assumed, not enforced.
type Actor struct {
	ID        string
	SpaceID   string
	Name      string
	ImageURL  *string
	CreatedAt time.Time
}

// ActorWithSummary pairs an actor with the aggregate of its ratings in the space.
type ActorWithSummary struct {
	Actor
	Rating Summary
}

// RatedMovie is the movie side of an actor rating join. It is nil on a
// row when the join found no movie.
type RatedMovie struct {
	ID       string
	SpaceID  string
	Title    string
	ImageURL *string
}

// ActorRatingRow is an actor rating joined to its movie.
type ActorRatingRow struct {
	ActorName string
	UserID    string
	Value     float64
	Movie     *RatedMovie
}

// MovieRollup summarizes one actor's ratings within one movie.
type MovieRollup struct {
	MovieID       string
	MovieTitle    string
	MovieImageURL *string
	Rating        Summary
}

// RollUpActor groups an actor's rating rows by movie for a space. Rows with
// no joined movie, or whose movie sits in another space, are dropped. Output
// follows the order in which movies first appear in rows.
func RollUpActor(rows []ActorRatingRow, spaceID string) []MovieRollup {
	order := make([]string, 0)
	movies := make(map[string]*RatedMovie)
	grouped := make([]RatingRow[string], 0, len(rows))

	for _, row := range rows {
		m := row.Movie
		if m == nil || m.SpaceID != spaceID {
			continue
		}
		if _, seen := movies[m.ID]; !seen {
			movies[m.ID] = m
			order = append(order, m.ID)
		}
		grouped = append(grouped, RatingRow[string]{Subject: m.ID, UserID: row.UserID, Value: row.Value})
	}

	summaries := SummarizeBy(grouped)
	out := make([]MovieRollup, 0, len(order))
	for _, id := range order {
		m := movies[id]
		out = append(out, MovieRollup{
			MovieID:       m.ID,
			MovieTitle:    m.Title,
			MovieImageURL: m.ImageURL,
			Rating:        summaries[id],
		})
	}
	return out
}
