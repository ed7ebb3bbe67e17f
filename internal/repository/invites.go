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

// InviteCreateParams captures the fields needed to invite a user.
type InviteCreateParams struct {
	SpaceID       string
	InvitedUserID string
	InvitedBy     string
	Role          string
}

// InvitesRepository persists space invitations.
type InvitesRepository struct {
	pool *pgxpool.Pool
}

const inviteSelect = `
    SELECT i.id, i.space_id, s.name, i.invited_user_id, i.invited_by, i.role, i.status, i.created_at, i.updated_at
    FROM movie_space_invites i
    JOIN movie_spaces s ON s.id = i.space_id
`

// Create inserts a pending invitation.
func (r *InvitesRepository) Create(ctx context.Context, params InviteCreateParams) (domain.Invitation, error) {
	role := params.Role
	if role == "" {
		role = domain.RoleMember
	}
	const query = `
        INSERT INTO movie_space_invites (id, space_id, invited_user_id, invited_by, role, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id
    `
	var id string
	err := r.pool.QueryRow(ctx, query,
		uuid.NewString(),
		params.SpaceID,
		params.InvitedUserID,
		params.InvitedBy,
		role,
		string(domain.InvitePending),
	).Scan(&id)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("insert invite: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches an invitation with its space name.
func (r *InvitesRepository) GetByID(ctx context.Context, id string) (domain.Invitation, error) {
	return scanInvite(r.pool.QueryRow(ctx, inviteSelect+` WHERE i.id = $1`, id))
}

// ListPendingForUser returns pending invitations addressed to a user, newest first.
func (r *InvitesRepository) ListPendingForUser(ctx context.Context, userID string) ([]domain.Invitation, error) {
	query := inviteSelect + ` WHERE i.invited_user_id = $1 AND i.status = $2 ORDER BY i.created_at DESC, i.id`
	rows, err := r.pool.Query(ctx, query, userID, string(domain.InvitePending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Accept inserts the membership with the invitation's role and then marks
// the invitation accepted, both in one transaction. A non-pending invitation
// returns ErrConflict.
func (r *InvitesRepository) Accept(ctx context.Context, id string) (domain.Invitation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Invitation{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var spaceID, userID, role, status string
	err = tx.QueryRow(ctx, `
        SELECT space_id, invited_user_id, role, status
        FROM movie_space_invites
        WHERE id = $1
        FOR UPDATE
    `, id).Scan(&spaceID, &userID, &role, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invitation{}, ErrNotFound
		}
		return domain.Invitation{}, fmt.Errorf("lock invite: %w", err)
	}
	if domain.InviteStatus(status) != domain.InvitePending {
		return domain.Invitation{}, ErrConflict
	}

	const member = `
        INSERT INTO movie_space_members (space_id, user_id, role)
        VALUES ($1,$2,$3)
        ON CONFLICT (space_id, user_id) DO NOTHING
    `
	if _, err := tx.Exec(ctx, member, spaceID, userID, role); err != nil {
		return domain.Invitation{}, fmt.Errorf("insert membership: %w", err)
	}

	tag, err := tx.Exec(ctx, `
        UPDATE movie_space_invites
        SET status = $2, updated_at = now()
        WHERE id = $1 AND status = $3
    `, id, string(domain.InviteAccepted), string(domain.InvitePending))
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("accept invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Invitation{}, ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Invitation{}, err
	}
	return r.GetByID(ctx, id)
}

// Reject marks a pending invitation rejected. A non-pending invitation returns ErrConflict.
func (r *InvitesRepository) Reject(ctx context.Context, id string) (domain.Invitation, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE movie_space_invites
        SET status = $2, updated_at = now()
        WHERE id = $1 AND status = $3
    `, id, string(domain.InviteRejected), string(domain.InvitePending))
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("reject invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Invitation{}, ErrConflict
	}
	return r.GetByID(ctx, id)
}

func scanInvite(row pgx.Row) (domain.Invitation, error) {
	var (
		inv    domain.Invitation
		status string
	)
	err := row.Scan(
		&inv.ID,
		&inv.SpaceID,
		&inv.SpaceName,
		&inv.InvitedUserID,
		&inv.InvitedBy,
		&inv.Role,
		&status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invitation{}, ErrNotFound
		}
		return domain.Invitation{}, err
	}
	inv.Status = domain.InviteStatus(status)
	return inv, nil
}
