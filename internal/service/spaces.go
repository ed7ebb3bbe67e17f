package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/repository"
)

// Spaces resolves visible spaces and guards access to them.
type Spaces struct {
	spaces  SpaceStore
	members MemberStore
	logger  zerolog.Logger
}

// Visible returns the union of spaces the user owns and spaces the user is a member of.
func (s *Spaces) Visible(ctx context.Context, userID string) ([]domain.Space, error) {
	owned, err := s.spaces.ListOwned(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("list owned spaces")
		return nil, fmt.Errorf("list owned spaces: %w", err)
	}
	memberships, err := s.members.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("list memberships")
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	joined := []domain.Space{}
	if ids := domain.SpaceIDs(memberships); len(ids) > 0 {
		joined, err = s.spaces.ListByIDs(ctx, ids)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("list joined spaces")
			return nil, fmt.Errorf("list joined spaces: %w", err)
		}
	}
	return domain.MergeSpaces(owned, joined), nil
}

// Create makes a space owned by userID. The owner membership row is
// written alongside it.
func (s *Spaces) Create(ctx context.Context, userID, name, description string) (domain.Space, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Space{}, invalid("name is required")
	}
	space, err := s.spaces.Create(ctx, repository.SpaceCreateParams{
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     userID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("create space")
		return domain.Space{}, fmt.Errorf("create space: %w", err)
	}
	s.logger.Info().Str("space_id", space.ID).Str("owner_id", userID).Msg("space created")
	return space, nil
}

// Get returns a space the user may see.
func (s *Spaces) Get(ctx context.Context, userID, spaceID string) (domain.Space, error) {
	return s.Authorize(ctx, userID, spaceID)
}

// Authorize loads the space and checks that userID is its owner or a member.
func (s *Spaces) Authorize(ctx context.Context, userID, spaceID string) (domain.Space, error) {
	space, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return domain.Space{}, notFoundAs(err, "space")
	}
	if space.OwnerID == userID {
		return space, nil
	}
	if _, err := s.members.Get(ctx, spaceID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Space{}, ErrForbidden
		}
		return domain.Space{}, fmt.Errorf("load membership: %w", err)
	}
	return space, nil
}

// AuthorizeOwner is Authorize restricted to the space owner.
func (s *Spaces) AuthorizeOwner(ctx context.Context, userID, spaceID string) (domain.Space, error) {
	space, err := s.Authorize(ctx, userID, spaceID)
	if err != nil {
		return domain.Space{}, err
	}
	if space.OwnerID != userID {
		return domain.Space{}, ErrForbidden
	}
	return space, nil
}
