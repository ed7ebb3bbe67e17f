package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/service"
)

type actorResponse struct {
	ID        string          `json:"id"`
	SpaceID   string          `json:"space_id"`
	Name      string          `json:"name"`
	ImageURL  *string         `json:"image_url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Rating    *domain.Summary `json:"rating,omitempty"`
}

type movieRollupResponse struct {
	MovieID       string         `json:"movie_id"`
	MovieTitle    string         `json:"movie_title"`
	MovieImageURL *string        `json:"movie_image_url,omitempty"`
	Rating        domain.Summary `json:"rating"`
}

type actorRollupResponse struct {
	Actor  actorResponse         `json:"actor"`
	Movies []movieRollupResponse `json:"movies"`
}

func (s *Server) handleListActors(w http.ResponseWriter, r *http.Request) {
	actors, err := s.actors.List(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), r.URL.Query().Get("q"))
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to list actors")
		return
	}
	resp := make([]actorResponse, 0, len(actors))
	for _, a := range actors {
		item := toActorResponse(a.Actor)
		rating := a.Rating
		item.Rating = &rating
		resp = append(resp, item)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	if !s.parseUploadForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	image, closeImage, err := formUpload(r, "image")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Unable to read uploaded image")
		return
	}
	defer closeImage()

	actor, err := s.actors.Create(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), service.ActorInput{
		Name:  r.FormValue("name"),
		Image: image,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to add actor")
		return
	}
	s.respondJSON(w, http.StatusCreated, toActorResponse(actor))
}

func (s *Server) handleActorRollup(w http.ResponseWriter, r *http.Request) {
	rollup, err := s.actors.RollUp(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), chi.URLParam(r, "actorID"))
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to fetch actor ratings")
		return
	}
	resp := actorRollupResponse{
		Actor:  toActorResponse(rollup.Actor),
		Movies: make([]movieRollupResponse, 0, len(rollup.Movies)),
	}
	for _, m := range rollup.Movies {
		resp.Movies = append(resp.Movies, movieRollupResponse{
			MovieID:       m.MovieID,
			MovieTitle:    m.MovieTitle,
			MovieImageURL: m.MovieImageURL,
			Rating:        m.Rating,
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func toActorResponse(a domain.Actor) actorResponse {
	return actorResponse{
		ID:        a.ID,
		SpaceID:   a.SpaceID,
		Name:      a.Name,
		ImageURL:  a.ImageURL,
		CreatedAt: a.CreatedAt,
	}
}
