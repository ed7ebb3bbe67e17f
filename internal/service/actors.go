package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/blob"
	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/repository"
)

// ActorInput is the add-actor form.
type ActorInput struct {
	Name  string
	Image *Upload
}

// ActorRollup is an actor with per-movie summaries of their ratings in a space.
type ActorRollup struct {
	Actor  domain.Actor
	Movies []domain.MovieRollup
}

// Actors implements the actor list, creation and roll-up.
type Actors struct {
	access  *Spaces
	actors  ActorStore
	ratings RatingStore
	blobs   BlobStore
	logger  zerolog.Logger
}

// List returns the space's actors whose name contains query, sorted by name.
// Each summary covers ratings for that name on movies of this space.
func (s *Actors) List(ctx context.Context, userID, spaceID, query string) ([]domain.ActorWithSummary, error) {
	if _, err := s.access.Authorize(ctx, userID, spaceID); err != nil {
		return nil, err
	}
	actors, err := s.actors.ListBySpace(ctx, spaceID)
	if err != nil {
		s.logger.Error().Err(err).Str("space_id", spaceID).Msg("list actors")
		return nil, fmt.Errorf("list actors: %w", err)
	}
	rows, err := s.ratings.ActorRowsInSpace(ctx, spaceID)
	if err != nil {
		s.logger.Error().Err(err).Str("space_id", spaceID).Msg("list actor ratings")
		return nil, fmt.Errorf("list actor ratings: %w", err)
	}
	summaries := domain.SummarizeBy(rows)

	filtered := domain.FilterActors(actors, strings.TrimSpace(query))
	out := make([]domain.ActorWithSummary, 0, len(filtered))
	for _, a := range filtered {
		out = append(out, domain.ActorWithSummary{Actor: a, Rating: summaries[a.Name]})
	}
	domain.SortActorsByName(out)
	return out, nil
}

// Create adds an actor, storing the optional image first.
func (s *Actors) Create(ctx context.Context, userID, spaceID string, in ActorInput) (domain.Actor, error) {
	if _, err := s.access.Authorize(ctx, userID, spaceID); err != nil {
		return domain.Actor{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Actor{}, invalid("name is required")
	}

	var imageURL *string
	if in.Image != nil {
		url, err := s.blobs.Upload(ctx, blob.BucketActorImages, blob.RandomName(in.Image.Filename), in.Image.Body, in.Image.ContentType)
		if err != nil {
			s.logger.Error().Err(err).Str("space_id", spaceID).Msg("Failed to upload actor image")
			return domain.Actor{}, fmt.Errorf("upload actor image: %w", err)
		}
		imageURL = &url
	}

	actor, err := s.actors.Create(ctx, repository.ActorCreateParams{SpaceID: spaceID, Name: name, ImageURL: imageURL})
	if err != nil {
		s.logger.Error().Err(err).Str("space_id", spaceID).Msg("Failed to add actor")
		return domain.Actor{}, fmt.Errorf("create actor: %w", err)
	}
	return actor, nil
}

// RollUp groups the actor's ratings by movie within the space.
func (s *Actors) RollUp(ctx context.Context, userID, spaceID, actorID string) (ActorRollup, error) {
	if _, err := s.access.Authorize(ctx, userID, spaceID); err != nil {
		return ActorRollup{}, err
	}
	actor, err := s.actors.GetByID(ctx, actorID)
	if err != nil {
		return ActorRollup{}, notFoundAs(err, "actor")
	}
	if actor.SpaceID != spaceID {
		return ActorRollup{}, fmt.Errorf("actor: %w", ErrNotFound)
	}

	rows, err := s.ratings.ActorRowsByName(ctx, actor.Name, spaceID)
	if err != nil {
		s.logger.Error().Err(err).Str("actor_id", actorID).Msg("load actor ratings")
		return ActorRollup{}, fmt.Errorf("load actor ratings: %w", err)
	}
	return ActorRollup{Actor: actor, Movies: domain.RollUpActor(rows, spaceID)}, nil
}
