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

// SpaceCreateParams captures required fields for inserting a space.
type SpaceCreateParams struct {
	Name        string
	Description string
	OwnerID     string
}

// SpacesRepository provides persistence helpers for movie spaces.
type SpacesRepository struct {
	pool *pgxpool.Pool
}

const spaceColumns = `id, name, description, owner_id, created_at`

// Create inserts a space together with the owner membership in one transaction.
func (r *SpacesRepository) Create(ctx context.Context, params SpaceCreateParams) (domain.Space, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Space{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `INSERT INTO movie_spaces (id, name, description, owner_id) VALUES ($1,$2,$3,$4) RETURNING ` + spaceColumns
	space, err := scanSpace(tx.QueryRow(ctx, query, uuid.NewString(), params.Name, params.Description, params.OwnerID))
	if err != nil {
		return domain.Space{}, fmt.Errorf("insert space: %w", err)
	}

	const member = `
        INSERT INTO movie_space_members (space_id, user_id, role)
        VALUES ($1,$2,$3)
        ON CONFLICT (space_id, user_id) DO NOTHING
    `
	if _, err := tx.Exec(ctx, member, space.ID, params.OwnerID, domain.RoleOwner); err != nil {
		return domain.Space{}, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Space{}, err
	}
	return space, nil
}

// GetByID fetches a space.
func (r *SpacesRepository) GetByID(ctx context.Context, id string) (domain.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM movie_spaces WHERE id = $1`
	return scanSpace(r.pool.QueryRow(ctx, query, id))
}

// ListOwned returns spaces owned by a user.
func (r *SpacesRepository) ListOwned(ctx context.Context, ownerID string) ([]domain.Space, error) {
	query := `SELECT ` + spaceColumns + ` FROM movie_spaces WHERE owner_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, ownerID)
}

// ListByIDs returns the spaces with the given ids. Unknown ids are ignored.
func (r *SpacesRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Space, error) {
	if len(ids) == 0 {
		return []domain.Space{}, nil
	}
	query := `SELECT ` + spaceColumns + ` FROM movie_spaces WHERE id = ANY($1) ORDER BY created_at, id`
	return r.list(ctx, query, ids)
}

func (r *SpacesRepository) list(ctx context.Context, query string, args ...any) ([]domain.Space, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Space, 0)
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSpace(row pgx.Row) (domain.Space, error) {
	var s domain.Space
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.OwnerID, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Space{}, ErrNotFound
		}
		return domain.Space{}, err
	}
	return s, nil
}

// MembersRepository manages space memberships.
type MembersRepository struct {
	pool *pgxpool.Pool
}

// Add inserts a membership. It reports false when the user already belongs to the space.
func (r *MembersRepository) Add(ctx context.Context, spaceID, userID, role string) (bool, error) {
	const query = `
        INSERT INTO movie_space_members (space_id, user_id, role)
        VALUES ($1,$2,$3)
        ON CONFLICT (space_id, user_id) DO NOTHING
    `
	tag, err := r.pool.Exec(ctx, query, spaceID, userID, role)
	if err != nil {
		return false, fmt.Errorf("insert membership: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get returns a single membership.
func (r *MembersRepository) Get(ctx context.Context, spaceID, userID string) (domain.Membership, error) {
	const query = `
        SELECT space_id, user_id, role, created_at
        FROM movie_space_members
        WHERE space_id = $1 AND user_id = $2
    `
	var m domain.Membership
	if err := r.pool.QueryRow(ctx, query, spaceID, userID).Scan(&m.SpaceID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Membership{}, ErrNotFound
		}
		return domain.Membership{}, err
	}
	return m, nil
}

// ListForUser returns every membership row of a user.
func (r *MembersRepository) ListForUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	const query = `
        SELECT space_id, user_id, role, created_at
        FROM movie_space_members
        WHERE user_id = $1
        ORDER BY created_at, space_id
    `
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Membership, 0)
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.SpaceID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
