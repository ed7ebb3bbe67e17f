package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/metrics"
	"github.com/Clark-Hu/movie-spaces/internal/repository"
)

const profileSearchLimit = 20

// Invitations implements profile search and the invitation workflow.
type Invitations struct {
	access   *Spaces
	invites  InviteStore
	profiles ProfileStore
	logger   zerolog.Logger
}

// SearchProfiles finds other users by username substring. An empty query returns nothing.
func (s *Invitations) SearchProfiles(ctx context.Context, userID, query string) ([]domain.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Profile{}, nil
	}
	found, err := s.profiles.SearchByUsername(ctx, query, profileSearchLimit+1)
	if err != nil {
		s.logger.Error().Err(err).Msg("search profiles")
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	out := make([]domain.Profile, 0, len(found))
	for _, p := range found {
		if p.ID != userID && len(out) < profileSearchLimit {
			out = append(out, p)
		}
	}
	return out, nil
}

// Invite creates a pending member invitation. Only the owner may invite.
func (s *Invitations) Invite(ctx context.Context, userID, spaceID, invitedUserID string) (domain.Invitation, error) {
	space, err := s.access.AuthorizeOwner(ctx, userID, spaceID)
	if err != nil {
		return domain.Invitation{}, err
	}
	if invitedUserID == "" {
		return domain.Invitation{}, invalid("user id is required")
	}
	if invitedUserID == space.OwnerID {
		return domain.Invitation{}, invalid("cannot invite the space owner")
	}
	if _, err := s.profiles.GetByID(ctx, invitedUserID); err != nil {
		return domain.Invitation{}, notFoundAs(err, "profile")
	}

	inv, err := s.invites.Create(ctx, repository.InviteCreateParams{
		SpaceID:       spaceID,
		InvitedUserID: invitedUserID,
		InvitedBy:     userID,
		Role:          domain.RoleMember,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("space_id", spaceID).Msg("Failed to send invite")
		return domain.Invitation{}, fmt.Errorf("create invite: %w", err)
	}
	s.logger.Info().Str("invite_id", inv.ID).Str("space_id", spaceID).Msg("invite sent")
	return inv, nil
}

// ListPending returns the caller's pending invitations.
func (s *Invitations) ListPending(ctx context.Context, userID string) ([]domain.Invitation, error) {
	invs, err := s.invites.ListPendingForUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("list invites")
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invs, nil
}

// Accept joins the caller to the invitation's space.
func (s *Invitations) Accept(ctx context.Context, userID, inviteID string) (domain.Invitation, error) {
	return s.respond(ctx, userID, inviteID, domain.InviteAccepted)
}

// Reject declines the invitation.
func (s *Invitations) Reject(ctx context.Context, userID, inviteID string) (domain.Invitation, error) {
	return s.respond(ctx, userID, inviteID, domain.InviteRejected)
}

func (s *Invitations) respond(ctx context.Context, userID, inviteID string, to domain.InviteStatus) (domain.Invitation, error) {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return domain.Invitation{}, notFoundAs(err, "invite")
	}
	if inv.InvitedUserID != userID {
		return domain.Invitation{}, ErrForbidden
	}
	if _, err := inv.Transition(to); err != nil {
		return domain.Invitation{}, fmt.Errorf("%w: %v", ErrConflict, err)
	}

	var updated domain.Invitation
	if to == domain.InviteAccepted {
		updated, err = s.invites.Accept(ctx, inviteID)
	} else {
		updated, err = s.invites.Reject(ctx, inviteID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Invitation{}, fmt.Errorf("invite is no longer pending: %w", ErrConflict)
		}
		s.logger.Error().Err(err).Str("invite_id", inviteID).Str("to", string(to)).Msg("update invite")
		return domain.Invitation{}, fmt.Errorf("update invite: %w", err)
	}
	metrics.InvitationTransitions.WithLabelValues(string(to)).Inc()
	return updated, nil
}
