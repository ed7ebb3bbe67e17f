package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/auth"
	"github.com/Clark-Hu/movie-spaces/internal/blob"
	"github.com/Clark-Hu/movie-spaces/internal/config"
	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/service"
)

const (
	aliceToken = "alice-token"
	aliceID    = "11111111-1111-1111-1111-111111111111"
)

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }

type fakeAuth struct {
	sessions   map[string]auth.Principal
	sessionErr error
	signUpErr  error
	signInErr  error
	resetErr   error
	confirmErr error
	signedOut  []string
	resetFor   []string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{sessions: map[string]auth.Principal{
		aliceToken: {UserID: aliceID, SessionID: "sess-1", Email: "alice@example.com", Username: "alice"},
	}}
}

func (f *fakeAuth) GetSession(_ context.Context, token string) (auth.Principal, error) {
	if f.sessionErr != nil {
		return auth.Principal{}, f.sessionErr
	}
	p, ok := f.sessions[token]
	if !ok {
		return auth.Principal{}, auth.ErrUnauthenticated
	}
	return p, nil
}

func (f *fakeAuth) SignUp(_ context.Context, in auth.SignUpInput) (auth.Session, error) {
	if f.signUpErr != nil {
		return auth.Session{}, f.signUpErr
	}
	return auth.Session{
		Token:     "new-token",
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Profile:   domain.Profile{ID: "new-user", Username: in.Username, Email: in.Email},
	}, nil
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, _ string) (auth.Session, error) {
	if f.signInErr != nil {
		return auth.Session{}, f.signInErr
	}
	return auth.Session{Token: aliceToken, Profile: domain.Profile{ID: aliceID, Username: "alice", Email: email}}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, p auth.Principal) error {
	f.signedOut = append(f.signedOut, p.SessionID)
	return nil
}

func (f *fakeAuth) ResetPasswordForEmail(_ context.Context, email string) error {
	f.resetFor = append(f.resetFor, email)
	return f.resetErr
}

func (f *fakeAuth) ConfirmPasswordReset(context.Context, string, string) error {
	return f.confirmErr
}

// fakeSpaces grants access to the ids in allowed and reports everything
// else in known as forbidden.
type fakeSpaces struct {
	allowed map[string]domain.Space
	known   map[string]bool
}

func (f *fakeSpaces) check(spaceID string) (domain.Space, error) {
	if sp, ok := f.allowed[spaceID]; ok {
		return sp, nil
	}
	if f.known[spaceID] {
		return domain.Space{}, service.ErrForbidden
	}
	return domain.Space{}, service.ErrNotFound
}

func (f *fakeSpaces) Visible(context.Context, string) ([]domain.Space, error) {
	out := make([]domain.Space, 0, len(f.allowed))
	for _, sp := range f.allowed {
		out = append(out, sp)
	}
	return out, nil
}

func (f *fakeSpaces) Create(_ context.Context, userID, name, description string) (domain.Space, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Space{}, service.ErrInvalidInput
	}
	sp := domain.Space{ID: "space-new", Name: name, Description: description, OwnerID: userID}
	f.allowed[sp.ID] = sp
	return sp, nil
}

func (f *fakeSpaces) Get(_ context.Context, _ string, spaceID string) (domain.Space, error) {
	return f.check(spaceID)
}

type fakeMovies struct {
	spaces  *fakeSpaces
	movies  []domain.MovieWithSummary
	created []service.MovieInput
	posters []string
	lastTab domain.MovieStatus
	rated   []string
}

func (f *fakeMovies) List(_ context.Context, _ string, spaceID string, tab domain.MovieStatus, query string) ([]domain.MovieWithSummary, error) {
	if _, err := f.spaces.check(spaceID); err != nil {
		return nil, err
	}
	f.lastTab = tab
	if !tab.Valid() {
		return nil, service.ErrInvalidInput
	}
	return domain.FilterMovies(f.movies, tab, query), nil
}

func (f *fakeMovies) Create(_ context.Context, userID, spaceID string, in service.MovieInput) (domain.Movie, error) {
	if _, err := f.spaces.check(spaceID); err != nil {
		return domain.Movie{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Movie{}, service.ErrInvalidInput
	}
	if in.Poster != nil {
		data, _ := io.ReadAll(in.Poster.Body)
		f.posters = append(f.posters, string(data))
	}
	f.created = append(f.created, in)
	return domain.Movie{
		ID:         "movie-new",
		SpaceID:    spaceID,
		Title:      in.Title,
		Genre:      domain.NormalizeGenre(in.Genre),
		LeadActors: domain.ParseLeadActors(in.LeadActors),
		Status:     in.Status,
		AddedBy:    userID,
	}, nil
}

func (f *fakeMovies) Detail(_ context.Context, _ string, spaceID, movieID string) (service.MovieDetail, error) {
	if _, err := f.spaces.check(spaceID); err != nil {
		return service.MovieDetail{}, err
	}
	for _, m := range f.movies {
		if m.ID == movieID {
			detail := service.MovieDetail{Movie: m.Movie, Rating: m.Rating, UserRating: 8}
			for _, name := range m.LeadActors {
				detail.Actors = append(detail.Actors, service.ActorRating{Name: name})
			}
			return detail, nil
		}
	}
	return service.MovieDetail{}, service.ErrNotFound
}

func (f *fakeMovies) rate(spaceID, movieID, label string, value float64) (service.RatingResult, error) {
	if err := domain.ValidateRating(value); err != nil {
		return service.RatingResult{}, service.ErrInvalidInput
	}
	if _, err := f.spaces.check(spaceID); err != nil {
		return service.RatingResult{}, err
	}
	for _, m := range f.movies {
		if m.ID == movieID {
			f.rated = append(f.rated, label)
			return service.RatingResult{Rating: domain.Summary{Average: value, Count: 1}, UserRating: value}, nil
		}
	}
	return service.RatingResult{}, service.ErrNotFound
}

func (f *fakeMovies) RateMovie(_ context.Context, _ string, spaceID, movieID string, value float64) (service.RatingResult, error) {
	return f.rate(spaceID, movieID, "movie", value)
}

func (f *fakeMovies) RateMusic(_ context.Context, _ string, spaceID, movieID string, value float64) (service.RatingResult, error) {
	return f.rate(spaceID, movieID, "music", value)
}

func (f *fakeMovies) RateActor(_ context.Context, _ string, spaceID, movieID, actorName string, value float64) (service.RatingResult, error) {
	return f.rate(spaceID, movieID, "actor:"+actorName, value)
}

type fakeActors struct {
	spaces *fakeSpaces
	actors []domain.ActorWithSummary
	rollup map[string]service.ActorRollup
}

func (f *fakeActors) List(_ context.Context, _ string, spaceID, query string) ([]domain.ActorWithSummary, error) {
	if _, err := f.spaces.check(spaceID); err != nil {
		return nil, err
	}
	out := make([]domain.ActorWithSummary, 0, len(f.actors))
	for _, a := range f.actors {
		if strings.Contains(strings.ToLower(a.Name), strings.ToLower(query)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeActors) Create(_ context.Context, _ string, spaceID string, in service.ActorInput) (domain.Actor, error) {
	if _, err := f.spaces.check(spaceID); err != nil {
		return domain.Actor{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.Actor{}, service.ErrInvalidInput
	}
	return domain.Actor{ID: "actor-new", SpaceID: spaceID, Name: in.Name}, nil
}

func (f *fakeActors) RollUp(_ context.Context, _ string, spaceID, actorID string) (service.ActorRollup, error) {
	if _, err := f.spaces.check(spaceID); err != nil {
		return service.ActorRollup{}, err
	}
	r, ok := f.rollup[actorID]
	if !ok {
		return service.ActorRollup{}, service.ErrNotFound
	}
	return r, nil
}

type fakeInvitations struct {
	pending  []domain.Invitation
	profiles []domain.Profile
	invited  []string
	respond  error
}

func (f *fakeInvitations) SearchProfiles(_ context.Context, _ string, query string) ([]domain.Profile, error) {
	out := make([]domain.Profile, 0)
	for _, p := range f.profiles {
		if strings.Contains(p.Username, query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeInvitations) Invite(_ context.Context, userID, spaceID, invitedUserID string) (domain.Invitation, error) {
	if invitedUserID == userID {
		return domain.Invitation{}, service.ErrInvalidInput
	}
	f.invited = append(f.invited, invitedUserID)
	return domain.Invitation{ID: "inv-new", SpaceID: spaceID, InvitedUserID: invitedUserID, InvitedBy: userID, Role: domain.RoleMember, Status: domain.InvitePending}, nil
}

func (f *fakeInvitations) ListPending(context.Context, string) ([]domain.Invitation, error) {
	return f.pending, nil
}

func (f *fakeInvitations) Accept(_ context.Context, _ string, inviteID string) (domain.Invitation, error) {
	if f.respond != nil {
		return domain.Invitation{}, f.respond
	}
	return domain.Invitation{ID: inviteID, Status: domain.InviteAccepted}, nil
}

func (f *fakeInvitations) Reject(_ context.Context, _ string, inviteID string) (domain.Invitation, error) {
	if f.respond != nil {
		return domain.Invitation{}, f.respond
	}
	return domain.Invitation{ID: inviteID, Status: domain.InviteRejected}, nil
}

type testEnv struct {
	srv     *Server
	auth    *fakeAuth
	spaces  *fakeSpaces
	movies  *fakeMovies
	actors  *fakeActors
	invites *fakeInvitations
	blobs   *blob.Store
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.RateLimitPerMinute = 0
	cfg.MaxUploadBytes = 1 << 10
	return cfg
}

func buildTestServer(tb testing.TB) *testEnv {
	tb.Helper()
	return buildTestServerWithConfig(tb, testConfig())
}

func buildTestServerWithConfig(tb testing.TB, cfg config.Config) *testEnv {
	tb.Helper()

	blobs, err := blob.Open(blob.Options{PublicBaseURL: "http://localhost:8080", MaxBytes: cfg.MaxUploadBytes})
	if err != nil {
		tb.Fatalf("open blob store: %v", err)
	}
	tb.Cleanup(func() { _ = blobs.Close() })

	spaces := &fakeSpaces{
		allowed: map[string]domain.Space{"space-1": {ID: "space-1", Name: "Friday Films", OwnerID: aliceID}},
		known:   map[string]bool{"space-2": true},
	}
	movies := &fakeMovies{spaces: spaces, movies: []domain.MovieWithSummary{
		{Movie: domain.Movie{ID: "m1", SpaceID: "space-1", Title: "Cast Away", Genre: "drama", LeadActors: []string{"Tom Hanks"}, Status: domain.StatusWishlist}},
		{Movie: domain.Movie{ID: "m2", SpaceID: "space-1", Title: "Big", Genre: "comedy", LeadActors: []string{"Tom Hanks"}, Status: domain.StatusWatched}, Rating: domain.Summary{Average: 8, Count: 3}},
	}}
	env := &testEnv{
		auth:    newFakeAuth(),
		spaces:  spaces,
		movies:  movies,
		actors:  &fakeActors{spaces: spaces, rollup: map[string]service.ActorRollup{}},
		invites: &fakeInvitations{},
		blobs:   blobs,
	}
	env.srv = New(cfg, Deps{
		Health:      fakeHealth{},
		Auth:        env.auth,
		Spaces:      env.spaces,
		Movies:      env.movies,
		Actors:      env.actors,
		Invitations: env.invites,
		Blobs:       blobs,
		Logger:      zerolog.Nop(),
	})
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	return req
}
