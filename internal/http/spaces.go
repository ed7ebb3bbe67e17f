package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
)

type createSpaceRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type spaceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type createInviteRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type inviteResponse struct {
	ID            string    `json:"id"`
	SpaceID       string    `json:"space_id"`
	SpaceName     string    `json:"space_name,omitempty"`
	InvitedUserID string    `json:"invited_user_id"`
	InvitedBy     string    `json:"invited_by"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Server) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := s.spaces.Visible(r.Context(), principal(r).UserID)
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to list spaces")
		return
	}
	resp := make([]spaceResponse, 0, len(spaces))
	for _, sp := range spaces {
		resp = append(resp, toSpaceResponse(sp))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var req createSpaceRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	space, err := s.spaces.Create(r.Context(), principal(r).UserID, req.Name, req.Description)
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to create space")
		return
	}
	s.respondJSON(w, http.StatusCreated, toSpaceResponse(space))
}

func (s *Server) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	space, err := s.spaces.Get(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"))
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to fetch space")
		return
	}
	s.respondJSON(w, http.StatusOK, toSpaceResponse(space))
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	inv, err := s.invitations.Invite(r.Context(), principal(r).UserID, chi.URLParam(r, "spaceID"), req.UserID)
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to send invitation")
		return
	}
	s.respondJSON(w, http.StatusCreated, toInviteResponse(inv))
}

func (s *Server) handleSearchProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.invitations.SearchProfiles(r.Context(), principal(r).UserID, r.URL.Query().Get("q"))
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to search profiles")
		return
	}
	resp := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, toProfileResponse(p, false))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.invitations.ListPending(r.Context(), principal(r).UserID)
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to list invitations")
		return
	}
	resp := make([]inviteResponse, 0, len(invites))
	for _, inv := range invites {
		resp = append(resp, toInviteResponse(inv))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invitations.Accept(r.Context(), principal(r).UserID, chi.URLParam(r, "inviteID"))
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to accept invitation")
		return
	}
	s.respondJSON(w, http.StatusOK, toInviteResponse(inv))
}

func (s *Server) handleRejectInvite(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invitations.Reject(r.Context(), principal(r).UserID, chi.URLParam(r, "inviteID"))
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to reject invitation")
		return
	}
	s.respondJSON(w, http.StatusOK, toInviteResponse(inv))
}

func toSpaceResponse(sp domain.Space) spaceResponse {
	return spaceResponse{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		OwnerID:     sp.OwnerID,
		CreatedAt:   sp.CreatedAt,
	}
}

func toInviteResponse(inv domain.Invitation) inviteResponse {
	return inviteResponse{
		ID:            inv.ID,
		SpaceID:       inv.SpaceID,
		SpaceName:     inv.SpaceName,
		InvitedUserID: inv.InvitedUserID,
		InvitedBy:     inv.InvitedBy,
		Role:          inv.Role,
		Status:        string(inv.Status),
		CreatedAt:     inv.CreatedAt,
	}
}
