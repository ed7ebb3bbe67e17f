package httpserver

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/service"
)

// multipartMemory is how much of a form is buffered before spilling to disk.
const multipartMemory = 8 << 20

type movieResponse struct {
	ID              string          `json:"id"`
	SpaceID         string          `json:"space_id"`
	Title           string          `json:"title"`
	Genre           string          `json:"genre"`
	LeadActors      []string        `json:"lead_actors"`
	ImageURL        *string         `json:"image_url,omitempty"`
	Status          string          `json:"status"`
	AddedBy         string          `json:"added_by"`
	AddedByUsername string          `json:"added_by_username,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Rating          *domain.Summary `json:"rating,omitempty"`
}

type actorRatingResponse struct {
	Name       string         `json:"name"`
	Rating     domain.Summary `json:"rating"`
	UserRating float64        `json:"user_rating"`
}

type movieDetailResponse struct {
	movieResponse
	UserRating      float64               `json:"user_rating"`
	Music           domain.Summary        `json:"music_rating"`
	UserMusicRating float64               `json:"user_music_rating"`
	Actors          []actorRatingResponse `json:"actor_ratings"`
}

type ratingRequest struct {
	Rating *float64 `json:"rating" validate:"required"`
}

type ratingResponse struct {
	Rating     domain.Summary `json:"rating"`
	UserRating float64        `json:"user_rating"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tab := domain.MovieStatus(q.Get("status"))
	if tab == "" {
		tab = domain.StatusWatched
	}

	movies, err := s.movies.List(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), tab, q.Get("q"))
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to list movies")
		return
	}
	resp := make([]movieResponse, 0, len(movies))
	for _, m := range movies {
		item := toMovieResponse(m.Movie)
		rating := m.Rating
		item.Rating = &rating
		resp = append(resp, item)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	if !s.parseUploadForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	poster, closePoster, err := formUpload(r, "image")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Unable to read uploaded image")
		return
	}
	defer closePoster()

	status := domain.MovieStatus(r.FormValue("status"))
	if status == "" {
		status = domain.StatusWatched
	}
	movie, err := s.movies.Create(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), service.MovieInput{
		Title:      r.FormValue("title"),
		Genre:      r.FormValue("genre"),
		LeadActors: r.FormValue("lead_actors"),
		Status:     status,
		Poster:     poster,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to add movie")
		return
	}
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	detail, err := s.movies.Detail(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), chi.URLParam(r, "movieID"))
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to fetch movie")
		return
	}

	resp := movieDetailResponse{
		movieResponse:   toMovieResponse(detail.Movie),
		UserRating:      detail.UserRating,
		Music:           detail.Music,
		UserMusicRating: detail.UserMusicRating,
		Actors:          make([]actorRatingResponse, 0, len(detail.Actors)),
	}
	rating := detail.Rating
	resp.Rating = &rating
	for _, a := range detail.Actors {
		resp.Actors = append(resp.Actors, actorRatingResponse{Name: a.Name, Rating: a.Rating, UserRating: a.UserRating})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRateMovie(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	res, err := s.movies.RateMovie(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), chi.URLParam(r, "movieID"), *req.Rating)
	s.respondRating(w, r, res, err)
}

func (s *Server) handleRateMusic(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	res, err := s.movies.RateMusic(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), chi.URLParam(r, "movieID"), *req.Rating)
	s.respondRating(w, r, res, err)
}

func (s *Server) handleRateActor(w http.ResponseWriter, r *http.Request) {
	actorName, err := decodeNameParam(r, "actorName")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	var req ratingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	res, err := s.movies.RateActor(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), chi.URLParam(r, "movieID"), actorName, *req.Rating)
	s.respondRating(w, r, res, err)
}

func (s *Server) respondRating(w http.ResponseWriter, r *http.Request, res service.RatingResult, err error) {
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to process rating")
		return
	}
	s.respondJSON(w, http.StatusOK, ratingResponse{Rating: res.Rating, UserRating: res.UserRating})
}

// parseUploadForm reads a multipart body bounded by the upload limit plus
// room for the text fields. On failure the response is already written.
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+maxRequestBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Uploaded file is too large")
			return false
		}
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Expected a multipart form")
		return false
	}
	return true
}

// formUpload returns the named file part, or nil when the form has none.
func formUpload(r *http.Request, field string) (*service.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, func() {}, nil
	}
	return &service.Upload{
		Filename:    header.Filename,
		ContentType: partContentType(header),
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

func partContentType(h *multipart.FileHeader) string {
	ct := h.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

// decodeNameParam returns a path parameter decoded exactly once. chi matches
// against RawPath when it is set, leaving the parameter escaped; otherwise
// the parameter is already decoded.
func decodeNameParam(r *http.Request, key string) (string, error) {
	raw := chi.URLParam(r, key)
	if raw == "" {
		return "", fmt.Errorf("missing %s parameter", key)
	}
	if r.URL.RawPath == "" {
		return raw, nil
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s parameter", key)
	}
	return name, nil
}

func toMovieResponse(m domain.Movie) movieResponse {
	actors := m.LeadActors
	if actors == nil {
		actors = []string{}
	}
	return movieResponse{
		ID:              m.ID,
		SpaceID:         m.SpaceID,
		Title:           m.Title,
		Genre:           m.Genre,
		LeadActors:      actors,
		ImageURL:        m.ImageURL,
		Status:          string(m.Status),
		AddedBy:         m.AddedBy,
		AddedByUsername: m.AddedByUsername,
		CreatedAt:       m.CreatedAt,
	}
}
