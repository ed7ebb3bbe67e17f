// Package service implements the use cases behind the HTTP API. Each
// service depends on small interfaces satisfied by the repository types,
// the blob store and the catalog client.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/catalog"
	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/repository"
)

var (
	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("service: forbidden")
	// ErrNotFound is returned when the resource does not exist or is outside the space.
	ErrNotFound = errors.New("service: not found")
	// ErrInvalidInput wraps field-level validation failures.
	ErrInvalidInput = errors.New("service: invalid input")
	// ErrConflict is returned when the resource is not in a state that allows the change.
	ErrConflict = errors.New("service: conflict")
)

// SpaceStore persists spaces.
type SpaceStore interface {
	Create(ctx context.Context, params repository.SpaceCreateParams) (domain.Space, error)
	GetByID(ctx context.Context, id string) (domain.Space, error)
	ListOwned(ctx context.Context, ownerID string) ([]domain.Space, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Space, error)
}

// MemberStore reads memberships.
type MemberStore interface {
	Get(ctx context.Context, spaceID, userID string) (domain.Membership, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Membership, error)
}

// MovieStore persists movies.
type MovieStore interface {
	Create(ctx context.Context, params repository.MovieCreateParams) (domain.Movie, error)
	GetByID(ctx context.Context, id string) (domain.Movie, error)
	ListBySpace(ctx context.Context, spaceID string) ([]domain.Movie, error)
}

// RatingStore persists rating rows of every kind.
type RatingStore interface {
	Upsert(ctx context.Context, params repository.RatingUpsertParams) (bool, error)
	ForMovie(ctx context.Context, kind domain.RatingKind, movieID string) ([]domain.RatingRow[domain.ActorKey], error)
	MovieRowsInSpace(ctx context.Context, spaceID string) ([]domain.RatingRow[string], error)
	ActorRowsInSpace(ctx context.Context, spaceID string) ([]domain.RatingRow[string], error)
	ActorRowsByName(ctx context.Context, actorName, spaceID string) ([]domain.ActorRatingRow, error)
}

// ActorStore persists actors.
type ActorStore interface {
	Create(ctx context.Context, params repository.ActorCreateParams) (domain.Actor, error)
	GetByID(ctx context.Context, id string) (domain.Actor, error)
	ListBySpace(ctx context.Context, spaceID string) ([]domain.Actor, error)
}

// InviteStore persists invitations.
type InviteStore interface {
	Create(ctx context.Context, params repository.InviteCreateParams) (domain.Invitation, error)
	GetByID(ctx context.Context, id string) (domain.Invitation, error)
	ListPendingForUser(ctx context.Context, userID string) ([]domain.Invitation, error)
	Accept(ctx context.Context, id string) (domain.Invitation, error)
	Reject(ctx context.Context, id string) (domain.Invitation, error)
}

// ProfileStore reads public profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (domain.Profile, error)
	SearchByUsername(ctx context.Context, q string, limit int) ([]domain.Profile, error)
}

// BlobStore stores uploaded images.
type BlobStore interface {
	Upload(ctx context.Context, bucket, name string, r io.Reader, contentType string) (string, error)
}

// Upload is an image submitted with a form.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Deps collects the collaborators of every service.
type Deps struct {
	Spaces   SpaceStore
	Members  MemberStore
	Movies   MovieStore
	Ratings  RatingStore
	Actors   ActorStore
	Invites  InviteStore
	Profiles ProfileStore
	Blobs    BlobStore
	Catalog  catalog.Client
	Logger   zerolog.Logger

	// CatalogTimeout bounds the catalog lookup made while creating a movie.
	CatalogTimeout time.Duration
}

// Services bundles the use cases exposed to the HTTP layer.
type Services struct {
	Spaces      *Spaces
	Movies      *Movies
	Actors      *Actors
	Invitations *Invitations
}

// New wires every service from deps.
func New(deps Deps) *Services {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Disabled{}
	}
	spaces := &Spaces{spaces: deps.Spaces, members: deps.Members, logger: deps.Logger.With().Str("component", "spaces").Logger()}
	return &Services{
		Spaces: spaces,
		Movies: &Movies{
			access:         spaces,
			movies:         deps.Movies,
			ratings:        deps.Ratings,
			blobs:          deps.Blobs,
			catalog:        deps.Catalog,
			catalogTimeout: deps.CatalogTimeout,
			logger:         deps.Logger.With().Str("component", "movies").Logger(),
		},
		Actors: &Actors{
			access:  spaces,
			actors:  deps.Actors,
			ratings: deps.Ratings,
			blobs:   deps.Blobs,
			logger:  deps.Logger.With().Str("component", "actors").Logger(),
		},
		Invitations: &Invitations{
			access:   spaces,
			invites:  deps.Invites,
			profiles: deps.Profiles,
			logger:   deps.Logger.With().Str("component", "invitations").Logger(),
		},
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFoundAs maps a repository miss onto ErrNotFound and wraps anything else.
func notFoundAs(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
