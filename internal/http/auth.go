package httpserver

import (
	"net/http"
	"time"

	"github.com/Clark-Hu/movie-spaces/internal/auth"
	"github.com/Clark-Hu/movie-spaces/internal/domain"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Username string `json:"username" validate:"required,min=2,max=40"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type profileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      profileResponse `json:"user"`
}

type principalResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	sess, err := s.auth.SignUp(r.Context(), auth.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to create account")
		return
	}
	s.respondJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	sess, err := s.auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondServiceError(w, r, err, "Failed to sign in")
		return
	}
	s.respondJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), principal(r)); err != nil {
		s.respondServiceError(w, r, err, "Failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	s.respondJSON(w, http.StatusOK, principalResponse{
		ID:        p.UserID,
		Email:     p.Email,
		Username:  p.Username,
		ExpiresAt: p.ExpiresAt,
	})
}

// handlePasswordReset answers 202 whether or not the email is registered.
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.auth.ResetPasswordForEmail(r.Context(), req.Email); err != nil {
		s.respondServiceError(w, r, err, "Failed to request password reset")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.auth.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		s.respondServiceError(w, r, err, "Failed to reset password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toSessionResponse(sess auth.Session) sessionResponse {
	return sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      toProfileResponse(sess.Profile, true),
	}
}

func toProfileResponse(p domain.Profile, withEmail bool) profileResponse {
	resp := profileResponse{ID: p.ID, Username: p.Username}
	if withEmail {
		resp.Email = p.Email
	}
	return resp
}
