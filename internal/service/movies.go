package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/blob"
	"github.com/Clark-Hu/movie-spaces/internal/catalog"
	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/metrics"
	"github.com/Clark-Hu/movie-spaces/internal/repository"
)

// MovieInput is the add-movie form.
type MovieInput struct {
	Title      string
	Genre      string
	LeadActors string
	Status     domain.MovieStatus
	Poster     *Upload
}

// ActorRating is one lead actor's summary within a movie.
type ActorRating struct {
	Name       string
	Rating     domain.Summary
	UserRating float64
}

// MovieDetail is everything the movie page shows.
type MovieDetail struct {
	domain.Movie
	Rating          domain.Summary
	UserRating      float64
	Music           domain.Summary
	UserMusicRating float64
	Actors          []ActorRating
}

// RatingResult is returned after a rating write.
type RatingResult struct {
	Rating     domain.Summary
	UserRating float64
}

// Movies implements movie listing, creation, detail and rating.
type Movies struct {
	access         *Spaces
	movies         MovieStore
	ratings        RatingStore
	blobs          BlobStore
	catalog        catalog.Client
	catalogTimeout time.Duration
	logger         zerolog.Logger
}

// List returns the space's movies on the given tab matching query, each
// with its movie rating summary. Newest first.
func (s *Movies) List(ctx context.Context, userID, spaceID string, tab domain.MovieStatus, query string) ([]domain.MovieWithSummary, error) {
	if _, err := s.access.Authorize(ctx, userID, spaceID); err != nil {
		return nil, err
	}
	if !tab.Valid() {
		return nil, invalid("status must be watched or wishlist")
	}

	movies, err := s.movies.ListBySpace(ctx, spaceID)
	if err != nil {
		s.logger.Error().Err(err).Str("space_id", spaceID).Msg("list movies")
		return nil, fmt.Errorf("list movies: %w", err)
	}
	rows, err := s.ratings.MovieRowsInSpace(ctx, spaceID)
	if err != nil {
		s.logger.Error().Err(err).Str("space_id", spaceID).Msg("list movie ratings")
		return nil, fmt.Errorf("list movie ratings: %w", err)
	}
	summaries := domain.SummarizeBy(rows)

	withSummary := make([]domain.MovieWithSummary, 0, len(movies))
	for _, m := range movies {
		withSummary = append(withSummary, domain.MovieWithSummary{Movie: m, Rating: summaries[m.ID]})
	}
	return domain.FilterMovies(withSummary, tab, strings.TrimSpace(query)), nil
}

// Create adds a movie to the space. An uploaded poster is stored first; when
// there is none the catalog may supply one, and it also fills in a missing
// genre or cast. A failed insert after a successful upload leaves the blob behind.
func (s *Movies) Create(ctx context.Context, userID, spaceID string, in MovieInput) (domain.Movie, error) {
	if _, err := s.access.Authorize(ctx, userID, spaceID); err != nil {
		return domain.Movie{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Movie{}, invalid("title is required")
	}
	if !in.Status.Valid() {
		return domain.Movie{}, invalid("status must be watched or wishlist")
	}

	genre := domain.NormalizeGenre(in.Genre)
	actors := domain.ParseLeadActors(in.LeadActors)
	var imageURL *string

	if in.Poster != nil {
		url, err := s.blobs.Upload(ctx, blob.BucketMoviePosters, blob.RandomName(in.Poster.Filename), in.Poster.Body, in.Poster.ContentType)
		if err != nil {
			s.logger.Error().Err(err).Str("space_id", spaceID).Msg("Failed to upload poster")
			return domain.Movie{}, fmt.Errorf("upload poster: %w", err)
		}
		imageURL = &url
	}

	genreGiven := strings.TrimSpace(in.Genre) != ""
	if imageURL == nil || !genreGiven || len(actors) == 0 {
		if res := s.lookup(ctx, title); res != nil {
			if imageURL == nil {
				imageURL = res.PosterURL
			}
			if !genreGiven && res.Genre != nil {
				genre = *res.Genre
			}
			if len(actors) == 0 {
				actors = res.LeadActors
			}
		}
	}

	movie, err := s.movies.Create(ctx, repository.MovieCreateParams{
		SpaceID:    spaceID,
		Title:      title,
		Genre:      genre,
		LeadActors: actors,
		ImageURL:   imageURL,
		Status:     in.Status,
		AddedBy:    userID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("space_id", spaceID).Str("title", title).Msg("Failed to add movie")
		return domain.Movie{}, fmt.Errorf("create movie: %w", err)
	}
	s.logger.Info().Str("movie_id", movie.ID).Str("space_id", spaceID).Msg("movie added")
	return movie, nil
}

func (s *Movies) lookup(ctx context.Context, title string) *catalog.Result {
	if s.catalogTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.catalogTimeout)
		defer cancel()
	}
	res, err := s.catalog.Lookup(ctx, title)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			s.logger.Warn().Err(err).Str("title", title).Msg("catalog lookup failed")
		}
		return nil
	}
	return res
}

// Detail returns the movie with its three rating families and the caller's own values.
func (s *Movies) Detail(ctx context.Context, userID, spaceID, movieID string) (MovieDetail, error) {
	movie, err := s.movieInSpace(ctx, userID, spaceID, movieID)
	if err != nil {
		return MovieDetail{}, err
	}

	detail := MovieDetail{Movie: movie, Actors: make([]ActorRating, 0, len(movie.LeadActors))}
	movieKey := domain.ActorKey{MovieID: movie.ID}

	rows, err := s.ratings.ForMovie(ctx, domain.RatingKindMovie, movie.ID)
	if err != nil {
		return MovieDetail{}, s.ratingReadFailed(err, movie.ID, domain.RatingKindMovie)
	}
	detail.Rating = domain.SummarizeBy(rows)[movieKey]
	detail.UserRating = domain.ValuesFor(rows, userID)[movieKey]

	rows, err = s.ratings.ForMovie(ctx, domain.RatingKindMusic, movie.ID)
	if err != nil {
		return MovieDetail{}, s.ratingReadFailed(err, movie.ID, domain.RatingKindMusic)
	}
	detail.Music = domain.SummarizeBy(rows)[movieKey]
	detail.UserMusicRating = domain.ValuesFor(rows, userID)[movieKey]

	rows, err = s.ratings.ForMovie(ctx, domain.RatingKindActor, movie.ID)
	if err != nil {
		return MovieDetail{}, s.ratingReadFailed(err, movie.ID, domain.RatingKindActor)
	}
	summaries := domain.SummarizeBy(rows)
	mine := domain.ValuesFor(rows, userID)
	for _, name := range movie.LeadActors {
		key := domain.ActorKey{MovieID: movie.ID, ActorName: name}
		detail.Actors = append(detail.Actors, ActorRating{Name: name, Rating: summaries[key], UserRating: mine[key]})
	}
	return detail, nil
}

// RateMovie records the caller's movie rating.
func (s *Movies) RateMovie(ctx context.Context, userID, spaceID, movieID string, value float64) (RatingResult, error) {
	return s.rate(ctx, domain.RatingKindMovie, userID, spaceID, movieID, "", value)
}

// RateMusic records the caller's soundtrack rating.
func (s *Movies) RateMusic(ctx context.Context, userID, spaceID, movieID string, value float64) (RatingResult, error) {
	return s.rate(ctx, domain.RatingKindMusic, userID, spaceID, movieID, "", value)
}

// RateActor records the caller's rating of a lead actor's performance in the movie.
func (s *Movies) RateActor(ctx context.Context, userID, spaceID, movieID, actorName string, value float64) (RatingResult, error) {
	return s.rate(ctx, domain.RatingKindActor, userID, spaceID, movieID, actorName, value)
}

func (s *Movies) rate(ctx context.Context, kind domain.RatingKind, userID, spaceID, movieID, actorName string, value float64) (RatingResult, error) {
	if err := domain.ValidateRating(value); err != nil {
		return RatingResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	movie, err := s.movieInSpace(ctx, userID, spaceID, movieID)
	if err != nil {
		return RatingResult{}, err
	}
	if kind == domain.RatingKindActor && !hasActor(movie.LeadActors, actorName) {
		return RatingResult{}, fmt.Errorf("actor %q in movie: %w", actorName, ErrNotFound)
	}

	inserted, err := s.ratings.Upsert(ctx, repository.RatingUpsertParams{
		Kind:   kind,
		Key:    repository.RatingKey{MovieID: movie.ID, ActorName: actorName},
		UserID: userID,
		Value:  value,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("movie_id", movie.ID).Str("kind", string(kind)).Msg("Failed to save rating")
		return RatingResult{}, fmt.Errorf("save rating: %w", err)
	}
	metrics.RecordRatingUpsert(string(kind), inserted)

	rows, err := s.ratings.ForMovie(ctx, kind, movie.ID)
	if err != nil {
		return RatingResult{}, s.ratingReadFailed(err, movie.ID, kind)
	}
	key := domain.ActorKey{MovieID: movie.ID, ActorName: actorName}
	return RatingResult{
		Rating:     domain.SummarizeBy(rows)[key],
		UserRating: domain.ValuesFor(rows, userID)[key],
	}, nil
}

func (s *Movies) movieInSpace(ctx context.Context, userID, spaceID, movieID string) (domain.Movie, error) {
	if _, err := s.access.Authorize(ctx, userID, spaceID); err != nil {
		return domain.Movie{}, err
	}
	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return domain.Movie{}, notFoundAs(err, "movie")
	}
	if movie.SpaceID != spaceID {
		return domain.Movie{}, fmt.Errorf("movie: %w", ErrNotFound)
	}
	return movie, nil
}

func (s *Movies) ratingReadFailed(err error, movieID string, kind domain.RatingKind) error {
	s.logger.Error().Err(err).Str("movie_id", movieID).Str("kind", string(kind)).Msg("load ratings")
	return fmt.Errorf("load %s ratings: %w", kind, err)
}

func hasActor(actors []string, name string) bool {
	for _, a := range actors {
		if a == name {
			return true
		}
	}
	return false
}
