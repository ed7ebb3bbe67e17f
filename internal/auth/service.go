// Package auth owns accounts, sessions and the session gate in front of
// every space route.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrUnauthenticated is returned when a token is missing, invalid, expired or revoked.
	ErrUnauthenticated = errors.New("auth: not authenticated")
	// ErrAccountExists is returned when the email or username is taken.
	ErrAccountExists = errors.New("auth: account already exists")
	// ErrWeakPassword is returned when a password fails the length policy.
	ErrWeakPassword = errors.New("auth: password rejected")
	// ErrInvalidResetToken is returned for unknown, used or expired reset tokens.
	ErrInvalidResetToken = errors.New("auth: invalid or expired reset token")
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, acct repository.NewAccount) (domain.User, domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// ProfileStore reads public profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (domain.Profile, error)
}

// SessionStore persists issued sessions.
type SessionStore interface {
	Create(ctx context.Context, userID string, expiresAt time.Time) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// ResetStore persists hashed password reset tokens. Redeem spends a token,
// stores the new password hash and revokes the user's sessions atomically.
type ResetStore interface {
	Create(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	Redeem(ctx context.Context, tokenHash, passwordHash string) (string, error)
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes reset links to the log instead of sending mail.
type LogMailer struct {
	Logger zerolog.Logger
}

// SendPasswordReset logs the link.
func (m LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.Logger.Info().Str("email", email).Str("link", link).Msg("auth: password reset requested")
	return nil
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
	Username  string
	ExpiresAt time.Time
}

// Session is a signed-in session returned to the client.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Profile   domain.Profile
}

// SignUpInput captures the sign-up form.
type SignUpInput struct {
	Email    string
	Password string
	Username string
}

// Options configures a Service.
type Options struct {
	Users    UserStore
	Profiles ProfileStore
	Sessions SessionStore
	Resets   ResetStore
	Tokens   *TokenManager
	Mailer   Mailer
	Logger   zerolog.Logger

	SessionTTL time.Duration
	ResetTTL   time.Duration
	// ResetURL is the page that receives ?token= from the reset mail.
	ResetURL string
}

// Service implements sign-up, sign-in, sign-out, session lookup and password reset.
type Service struct {
	users    UserStore
	profiles ProfileStore
	sessions SessionStore
	resets   ResetStore
	tokens   *TokenManager
	mailer   Mailer
	logger   zerolog.Logger

	sessionTTL time.Duration
	resetTTL   time.Duration
	resetURL   string
	now        func() time.Time
}

// NewService wires the auth service.
func NewService(opts Options) *Service {
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	resetTTL := opts.ResetTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	mailer := opts.Mailer
	if mailer == nil {
		mailer = LogMailer{Logger: opts.Logger}
	}
	return &Service{
		users:      opts.Users,
		profiles:   opts.Profiles,
		sessions:   opts.Sessions,
		resets:     opts.Resets,
		tokens:     opts.Tokens,
		mailer:     mailer,
		logger:     opts.Logger,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		resetURL:   opts.ResetURL,
		now:        time.Now,
	}
}

// SignUp creates the account and its profile and signs the user in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (Session, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	user, profile, err := s.users.Create(ctx, repository.NewAccount{
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Username:     strings.TrimSpace(in.Username),
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return Session{}, fmt.Errorf("%w: %v", ErrAccountExists, err)
		}
		return Session{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID).Msg("auth: account created")
	return s.startSession(ctx, user, profile)
}

// SignInWithPassword verifies credentials and starts a session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	profile, err := s.profiles.GetByID(ctx, user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("load profile: %w", err)
	}
	return s.startSession(ctx, user, profile)
}

func (s *Service) startSession(ctx context.Context, user domain.User, profile domain.Profile) (Session, error) {
	expiresAt := s.now().Add(s.sessionTTL).UTC().Truncate(time.Second)
	stored, err := s.sessions.Create(ctx, user.ID, expiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	token, err := s.tokens.Issue(user.ID, user.Email, stored.ID, expiresAt)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, Profile: profile}, nil
}

// GetSession validates a bearer token and resolves the caller.
func (s *Service) GetSession(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrUnauthenticated
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	stored, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, fmt.Errorf("load session: %w", err)
	}
	if stored.UserID != claims.Subject {
		return Principal{}, ErrUnauthenticated
	}
	profile, err := s.profiles.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, fmt.Errorf("load profile: %w", err)
	}
	return Principal{
		UserID:    claims.Subject,
		SessionID: stored.ID,
		Email:     claims.Email,
		Username:  profile.Username,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// SignOut revokes the session behind p.
func (s *Service) SignOut(ctx context.Context, p Principal) error {
	if err := s.sessions.Delete(ctx, p.SessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ResetPasswordForEmail mails a one-time reset link. Unknown emails succeed
// silently so the endpoint does not reveal which addresses are registered.
func (s *Service) ResetPasswordForEmail(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	token, hash, err := newResetToken()
	if err != nil {
		return err
	}
	if err := s.resets.Create(ctx, hash, user.ID, s.now().Add(s.resetTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return s.mailer.SendPasswordReset(ctx, user.Email, s.resetLink(token))
}

// ConfirmPasswordReset spends a reset token, sets the new password and
// revokes every existing session of the user. A failed update leaves the
// token usable.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	userID, err := s.resets.Redeem(ctx, hashResetToken(token), hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("auth: password reset")
	return nil
}

func (s *Service) resetLink(token string) string {
	base := s.resetURL
	if base == "" {
		base = "/reset-password"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}
