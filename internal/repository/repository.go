package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-spaces/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness or state precondition failed.
	ErrConflict = errors.New("repository: conflict")
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Users    *UsersRepository
	Sessions *SessionsRepository
	Resets   *PasswordResetsRepository
	Profiles *ProfilesRepository
	Spaces   *SpacesRepository
	Members  *MembersRepository
	Invites  *InvitesRepository
	Movies   *MoviesRepository
	Ratings  *RatingsRepository
	Actors   *ActorsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Users:    &UsersRepository{pool: pool},
		Sessions: &SessionsRepository{pool: pool},
		Resets:   &PasswordResetsRepository{pool: pool},
		Profiles: &ProfilesRepository{pool: pool},
		Spaces:   &SpacesRepository{pool: pool},
		Members:  &MembersRepository{pool: pool},
		Invites:  &InvitesRepository{pool: pool},
		Movies:   &MoviesRepository{pool: pool},
		Ratings:  &RatingsRepository{pool: pool},
		Actors:   &ActorsRepository{pool: pool},
	}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// likePattern wraps q for a substring ILIKE, escaping wildcard characters.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
