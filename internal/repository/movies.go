package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
)

// MovieCreateParams captures required/optional fields for inserting a movie.
type MovieCreateParams struct {
	SpaceID    string
	Title      string
	Genre      string
	LeadActors []string
	ImageURL   *string
	Status     domain.MovieStatus
	AddedBy    string
}

// MoviesRepository provides persistence helpers for movies.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieSelect = `
    SELECT m.id, m.space_id, m.title, m.genre, m.lead_actors, m.image_url, m.status, m.added_by, m.created_at,
           COALESCE(p.username, '')
    FROM movies m
    LEFT JOIN profiles p ON p.id = m.added_by
`

// Create inserts a new movie.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	actors := params.LeadActors
	if actors == nil {
		actors = []string{}
	}
	genre := params.Genre
	if genre == "" {
		genre = domain.GenreUnknown
	}
	const query = `
        INSERT INTO movies (id, space_id, title, genre, lead_actors, image_url, status, added_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id
    `
	var id string
	err := r.pool.QueryRow(ctx, query,
		uuid.NewString(),
		params.SpaceID,
		params.Title,
		genre,
		actors,
		params.ImageURL,
		string(params.Status),
		params.AddedBy,
	).Scan(&id)
	if err != nil {
		return domain.Movie{}, fmt.Errorf("insert movie: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a movie with its author's username.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (domain.Movie, error) {
	return scanMovie(r.pool.QueryRow(ctx, movieSelect+` WHERE m.id = $1`, id))
}

// ListBySpace returns the movies of a space, newest first.
func (r *MoviesRepository) ListBySpace(ctx context.Context, spaceID string) ([]domain.Movie, error) {
	rows, err := r.pool.Query(ctx, movieSelect+` WHERE m.space_id = $1 ORDER BY m.created_at DESC, m.id`, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var (
		m      domain.Movie
		status string
	)
	err := row.Scan(
		&m.ID,
		&m.SpaceID,
		&m.Title,
		&m.Genre,
		&m.LeadActors,
		&m.ImageURL,
		&status,
		&m.AddedBy,
		&m.CreatedAt,
		&m.AddedByUsername,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	m.Status = domain.MovieStatus(status)
	if m.LeadActors == nil {
		m.LeadActors = []string{}
	}
	return m, nil
}
