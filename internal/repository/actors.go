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

// ActorCreateParams captures the fields for inserting an actor.
type ActorCreateParams struct {
	SpaceID  string
	Name     string
	ImageURL *string
}

// ActorsRepository persists actors tracked in a space.
type ActorsRepository struct {
	pool *pgxpool.Pool
}

const actorColumns = `id, space_id, name, image_url, created_at`

// Create inserts an actor.
func (r *ActorsRepository) Create(ctx context.Context, params ActorCreateParams) (domain.Actor, error) {
	query := `INSERT INTO actors (id, space_id, name, image_url) VALUES ($1,$2,$3,$4) RETURNING ` + actorColumns
	a, err := scanActor(r.pool.QueryRow(ctx, query, uuid.NewString(), params.SpaceID, params.Name, params.ImageURL))
	if err != nil {
		return domain.Actor{}, fmt.Errorf("insert actor: %w", err)
	}
	return a, nil
}

// GetByID fetches an actor.
func (r *ActorsRepository) GetByID(ctx context.Context, id string) (domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE id = $1`
	return scanActor(r.pool.QueryRow(ctx, query, id))
}

// ListBySpace returns the actors of a space in insertion order.
func (r *ActorsRepository) ListBySpace(ctx context.Context, spaceID string) ([]domain.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE space_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Actor, 0)
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanActor(row pgx.Row) (domain.Actor, error) {
	var a domain.Actor
	if err := row.Scan(&a.ID, &a.SpaceID, &a.Name, &a.ImageURL, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Actor{}, ErrNotFound
		}
		return domain.Actor{}, err
	}
	return a, nil
}
