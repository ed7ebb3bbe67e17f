package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/auth"
	"github.com/Clark-Hu/movie-spaces/internal/blob"
	"github.com/Clark-Hu/movie-spaces/internal/config"
	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/metrics"
	"github.com/Clark-Hu/movie-spaces/internal/service"
)

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AuthService is the account and session surface used by the handlers.
type AuthService interface {
	auth.SessionResolver
	SignUp(ctx context.Context, in auth.SignUpInput) (auth.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (auth.Session, error)
	SignOut(ctx context.Context, p auth.Principal) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// SpaceService lists, creates and reads spaces.
type SpaceService interface {
	Visible(ctx context.Context, userID string) ([]domain.Space, error)
	Create(ctx context.Context, userID, name, description string) (domain.Space, error)
	Get(ctx context.Context, userID, spaceID string) (domain.Space, error)
}

// MovieService lists, creates, shows and rates movies.
type MovieService interface {
	List(ctx context.Context, userID, spaceID string, tab domain.MovieStatus, query string) ([]domain.MovieWithSummary, error)
	Create(ctx context.Context, userID, spaceID string, in service.MovieInput) (domain.Movie, error)
	Detail(ctx context.Context, userID, spaceID, movieID string) (service.MovieDetail, error)
	RateMovie(ctx context.Context, userID, spaceID, movieID string, value float64) (service.RatingResult, error)
	RateMusic(ctx context.Context, userID, spaceID, movieID string, value float64) (service.RatingResult, error)
	RateActor(ctx context.Context, userID, spaceID, movieID, actorName string, value float64) (service.RatingResult, error)
}

// ActorService lists, creates and rolls up actors.
type ActorService interface {
	List(ctx context.Context, userID, spaceID, query string) ([]domain.ActorWithSummary, error)
	Create(ctx context.Context, userID, spaceID string, in service.ActorInput) (domain.Actor, error)
	RollUp(ctx context.Context, userID, spaceID, actorID string) (service.ActorRollup, error)
}

// InvitationService searches profiles and drives invitations.
type InvitationService interface {
	SearchProfiles(ctx context.Context, userID, query string) ([]domain.Profile, error)
	Invite(ctx context.Context, userID, spaceID, invitedUserID string) (domain.Invitation, error)
	ListPending(ctx context.Context, userID string) ([]domain.Invitation, error)
	Accept(ctx context.Context, userID, inviteID string) (domain.Invitation, error)
	Reject(ctx context.Context, userID, inviteID string) (domain.Invitation, error)
}

// BlobReader serves stored uploads.
type BlobReader interface {
	Open(ctx context.Context, bucket, name string) (blob.Object, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Health      HealthChecker
	Auth        AuthService
	Spaces      SpaceService
	Movies      MovieService
	Actors      ActorService
	Invitations InvitationService
	Blobs       BlobReader
	Logger      zerolog.Logger
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg         config.Config
	health      HealthChecker
	auth        AuthService
	spaces      SpaceService
	movies      MovieService
	actors      ActorService
	invitations InvitationService
	blobs       BlobReader
	logger      zerolog.Logger
	router      chi.Router
	httpSrv     *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, deps Deps) *Server {
	s := &Server{
		cfg:         cfg,
		health:      deps.Health,
		auth:        deps.Auth,
		spaces:      deps.Spaces,
		movies:      deps.Movies,
		actors:      deps.Actors,
		invitations: deps.Invitations,
		blobs:       deps.Blobs,
		logger:      deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	s.router = r
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metrics.Handler())
	s.router.Get("/storage/{bucket}/*", s.handleStorage)

	s.router.Group(func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(
				s.cfg.RateLimitPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(s.handleRateLimited),
			))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignUp)
			r.Post("/login", s.handleLogin)
			r.Post("/password-reset", s.handlePasswordReset)
			r.Post("/password-reset/confirm", s.handlePasswordResetConfirm)
			r.Group(func(r chi.Router) {
				r.Use(auth.Gate(s.auth, s.denySession))
				r.Post("/logout", s.handleLogout)
				r.Get("/session", s.handleSession)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Gate(s.auth, s.denySession))

			r.Route("/spaces", func(r chi.Router) {
				r.Get("/", s.handleListSpaces)
				r.Post("/", s.handleCreateSpace)
				r.Route("/{spaceID}", func(r chi.Router) {
					r.Get("/", s.handleGetSpace)
					r.Post("/invites", s.handleCreateInvite)

					r.Get("/movies", s.handleListMovies)
					r.Post("/movies", s.handleCreateMovie)
					r.Route("/movies/{movieID}", func(r chi.Router) {
						r.Get("/", s.handleGetMovie)
						r.Put("/rating", s.handleRateMovie)
						r.Put("/music-rating", s.handleRateMusic)
						r.Put("/actors/{actorName}/rating", s.handleRateActor)
					})

					r.Get("/actors", s.handleListActors)
					r.Post("/actors", s.handleCreateActor)
					r.Get("/actors/{actorID}/ratings", s.handleActorRollup)
				})
			})

			r.Get("/profiles", s.handleSearchProfiles)
			r.Route("/invites", func(r chi.Router) {
				r.Get("/", s.handleListInvites)
				r.Post("/{inviteID}/accept", s.handleAcceptInvite)
				r.Post("/{inviteID}/reject", s.handleRejectInvite)
			})
		})
	})
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("http shutdown")
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health == nil {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, _ *http.Request) {
	s.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
}

// denySession answers 401 for bad credentials. Other resolver failures are
// store errors and answer 500.
func (s *Server) denySession(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	s.logger.Error().Err(err).Str("request_id", requestID(r)).Msg("resolve session")
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify session")
}

// accessLog writes one structured line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		evt := s.logger.Info()
		if status >= http.StatusInternalServerError {
			evt = s.logger.Error()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", requestID(r)).
			Msg("http request")
	})
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// principal returns the caller resolved by the session gate. Handlers
// behind the gate can rely on it being present.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}
