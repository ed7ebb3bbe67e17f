package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
)

// ProfilesRepository provides persistence helpers for public profiles.
type ProfilesRepository struct {
	pool *pgxpool.Pool
}

const profileColumns = `id, username, email, created_at`

// GetByID fetches a profile.
func (r *ProfilesRepository) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(r.pool.QueryRow(ctx, query, id))
}

// SearchByUsername returns profiles whose username contains q, case-insensitively.
func (r *ProfilesRepository) SearchByUsername(ctx context.Context, q string, limit int) ([]domain.Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username ILIKE $1 ORDER BY username LIMIT $2`
	rows, err := r.pool.Query(ctx, query, likePattern(q), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, ErrNotFound
		}
		return domain.Profile{}, err
	}
	return p, nil
}
