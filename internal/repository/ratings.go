package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
)

// RatingKey addresses one rating subject. ActorName is only used for actor ratings.
type RatingKey struct {
	MovieID   string
	ActorName string
}

// RatingUpsertParams describes a user's rating for a subject.
type RatingUpsertParams struct {
	Kind   domain.RatingKind
	Key    RatingKey
	UserID string
	Value  float64
}

// RatingsRepository persists movie, music and actor ratings. All three kinds
// share the same shape and differ only in table and key columns.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

type ratingTable struct {
	name      string
	withActor bool
}

var ratingTables = map[domain.RatingKind]ratingTable{
	domain.RatingKindMovie: {name: "movie_ratings"},
	domain.RatingKindMusic: {name: "music_ratings"},
	domain.RatingKindActor: {name: "actor_ratings", withActor: true},
}

func tableFor(kind domain.RatingKind) (ratingTable, error) {
	t, ok := ratingTables[kind]
	if !ok {
		return ratingTable{}, fmt.Errorf("unknown rating kind %q", kind)
	}
	return t, nil
}

// Upsert inserts or updates the user's rating. The bool reports whether a new row was created.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (bool, error) {
	t, err := tableFor(params.Kind)
	if err != nil {
		return false, err
	}

	var (
		query string
		args  []any
	)
	if t.withActor {
		query = `
        INSERT INTO actor_ratings (movie_id, user_id, actor_name, rating)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (movie_id, user_id, actor_name) DO UPDATE
        SET rating = EXCLUDED.rating,
            updated_at = now()
        RETURNING (xmax = 0) AS inserted
    `
		args = []any{params.Key.MovieID, params.UserID, params.Key.ActorName, params.Value}
	} else {
		query = `
        INSERT INTO ` + t.name + ` (movie_id, user_id, rating)
        VALUES ($1,$2,$3)
        ON CONFLICT (movie_id, user_id) DO UPDATE
        SET rating = EXCLUDED.rating,
            updated_at = now()
        RETURNING (xmax = 0) AS inserted
    `
		args = []any{params.Key.MovieID, params.UserID, params.Value}
	}

	var inserted bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&inserted); err != nil {
		return false, fmt.Errorf("upsert %s rating: %w", params.Kind, err)
	}
	return inserted, nil
}

// ForMovie returns every rating row of the given kind for a movie. Subjects
// carry the movie id and, for actor ratings, the actor name.
func (r *RatingsRepository) ForMovie(ctx context.Context, kind domain.RatingKind, movieID string) ([]domain.RatingRow[domain.ActorKey], error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	actorCol := `''`
	if t.withActor {
		actorCol = `actor_name`
	}
	query := `SELECT movie_id, ` + actorCol + `, user_id, rating FROM ` + t.name + ` WHERE movie_id = $1 ORDER BY user_id`
	rows, err := r.pool.Query(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RatingRow[domain.ActorKey], 0)
	for rows.Next() {
		var row domain.RatingRow[domain.ActorKey]
		if err := rows.Scan(&row.Subject.MovieID, &row.Subject.ActorName, &row.UserID, &row.Value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MovieRowsInSpace returns movie rating rows for every movie of a space,
// keyed by movie id.
func (r *RatingsRepository) MovieRowsInSpace(ctx context.Context, spaceID string) ([]domain.RatingRow[string], error) {
	const query = `
        SELECT mr.movie_id, mr.user_id, mr.rating
        FROM movie_ratings mr
        JOIN movies m ON m.id = mr.movie_id
        WHERE m.space_id = $1
    `
	return r.stringRows(ctx, query, spaceID)
}

// ActorRowsInSpace returns actor rating rows keyed by actor name, limited to
// movies of the space.
func (r *RatingsRepository) ActorRowsInSpace(ctx context.Context, spaceID string) ([]domain.RatingRow[string], error) {
	const query = `
        SELECT ar.actor_name, ar.user_id, ar.rating
        FROM actor_ratings ar
        JOIN movies m ON m.id = ar.movie_id
        WHERE m.space_id = $1
    `
	return r.stringRows(ctx, query, spaceID)
}

// ActorRowsByName returns every rating for an actor name with the joined
// movie attached only when it belongs to spaceID. Other rows come back with
// a nil Movie.
func (r *RatingsRepository) ActorRowsByName(ctx context.Context, actorName, spaceID string) ([]domain.ActorRatingRow, error) {
	const query = `
        SELECT ar.actor_name, ar.user_id, ar.rating, m.id, m.space_id, m.title, m.image_url
        FROM actor_ratings ar
        LEFT JOIN movies m ON m.id = ar.movie_id AND m.space_id = $2
        WHERE ar.actor_name = $1
        ORDER BY m.created_at DESC NULLS LAST, ar.movie_id, ar.user_id
    `
	rows, err := r.pool.Query(ctx, query, actorName, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ActorRatingRow, 0)
	for rows.Next() {
		var (
			row                       domain.ActorRatingRow
			movieID, mSpaceID, mTitle *string
			mImage                    *string
		)
		if err := rows.Scan(&row.ActorName, &row.UserID, &row.Value, &movieID, &mSpaceID, &mTitle, &mImage); err != nil {
			return nil, err
		}
		if movieID != nil {
			row.Movie = &domain.RatedMovie{
				ID:       *movieID,
				SpaceID:  deref(mSpaceID),
				Title:    deref(mTitle),
				ImageURL: mImage,
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *RatingsRepository) stringRows(ctx context.Context, query string, args ...any) ([]domain.RatingRow[string], error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RatingRow[string], 0)
	for rows.Next() {
		var row domain.RatingRow[string]
		if err := rows.Scan(&row.Subject, &row.UserID, &row.Value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
