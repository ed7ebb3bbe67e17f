package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-spaces/internal/catalog"
	"github.com/Clark-Hu/movie-spaces/internal/domain"
	"github.com/Clark-Hu/movie-spaces/internal/repository"
)

type memRating struct {
	kind   domain.RatingKind
	key    repository.RatingKey
	userID string
	value  float64
}

// memDB is an in-memory stand-in for every store the services use.
type memDB struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	spaces   map[string]domain.Space
	members  map[[2]string]domain.Membership
	movies   map[string]domain.Movie
	ratings  []memRating
	actors   map[string]domain.Actor
	invites  map[string]domain.Invitation
	profiles map[string]domain.Profile
	blobs    map[string][]byte

	failMovieCreate error
}

func newMemDB() *memDB {
	return &memDB{
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		spaces:   map[string]domain.Space{},
		members:  map[[2]string]domain.Membership{},
		movies:   map[string]domain.Movie{},
		actors:   map[string]domain.Actor{},
		invites:  map[string]domain.Invitation{},
		profiles: map[string]domain.Profile{},
		blobs:    map[string][]byte{},
	}
}

func (db *memDB) next(prefix string) (string, time.Time) {
	db.seq++
	db.clock = db.clock.Add(time.Minute)
	return fmt.Sprintf("%s-%d", prefix, db.seq), db.clock
}

func (db *memDB) addProfile(username string) domain.Profile {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, at := db.next("user")
	p := domain.Profile{ID: id, Username: username, Email: username + "@example.com", CreatedAt: at}
	db.profiles[id] = p
	return p
}

func (db *memDB) memberCount(spaceID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for k := range db.members {
		if k[0] == spaceID {
			n++
		}
	}
	return n
}

func (db *memDB) deps(cat catalog.Client) Deps {
	return Deps{
		Spaces:   memSpaces{db},
		Members:  memMembers{db},
		Movies:   memMovies{db},
		Ratings:  memRatings{db},
		Actors:   memActors{db},
		Invites:  memInvites{db},
		Profiles: memProfiles{db},
		Blobs:    memBlobs{db},
		Catalog:  cat,
		Logger:   zerolog.Nop(),
	}
}

type memSpaces struct{ *memDB }

func (m memSpaces) Create(_ context.Context, p repository.SpaceCreateParams) (domain.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, at := m.next("space")
	s := domain.Space{ID: id, Name: p.Name, Description: p.Description, OwnerID: p.OwnerID, CreatedAt: at}
	m.spaces[id] = s
	m.members[[2]string{id, p.OwnerID}] = domain.Membership{SpaceID: id, UserID: p.OwnerID, Role: domain.RoleOwner, CreatedAt: at}
	return s, nil
}

func (m memSpaces) GetByID(_ context.Context, id string) (domain.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[id]
	if !ok {
		return domain.Space{}, repository.ErrNotFound
	}
	return s, nil
}

func (m memSpaces) ListOwned(_ context.Context, ownerID string) ([]domain.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Space{}
	for _, s := range m.spaces {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m memSpaces) ListByIDs(_ context.Context, ids []string) ([]domain.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Space{}
	for _, id := range ids {
		if s, ok := m.spaces[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type memMembers struct{ *memDB }

func (m memMembers) Get(_ context.Context, spaceID, userID string) (domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[[2]string{spaceID, userID}]
	if !ok {
		return domain.Membership{}, repository.ErrNotFound
	}
	return mem, nil
}

func (m memMembers) ListForUser(_ context.Context, userID string) ([]domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Membership{}
	for _, mem := range m.members {
		if mem.UserID == userID {
			out = append(out, mem)
		}
	}
	return out, nil
}

type memMovies struct{ *memDB }

func (m memMovies) Create(_ context.Context, p repository.MovieCreateParams) (domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMovieCreate != nil {
		return domain.Movie{}, m.failMovieCreate
	}
	id, at := m.next("movie")
	actors := p.LeadActors
	if actors == nil {
		actors = []string{}
	}
	mv := domain.Movie{
		ID:              id,
		SpaceID:         p.SpaceID,
		Title:           p.Title,
		Genre:           p.Genre,
		LeadActors:      actors,
		ImageURL:        p.ImageURL,
		Status:          p.Status,
		AddedBy:         p.AddedBy,
		CreatedAt:       at,
		AddedByUsername: m.profiles[p.AddedBy].Username,
	}
	m.movies[id] = mv
	return mv, nil
}

func (m memMovies) GetByID(_ context.Context, id string) (domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.movies[id]
	if !ok {
		return domain.Movie{}, repository.ErrNotFound
	}
	return mv, nil
}

func (m memMovies) ListBySpace(_ context.Context, spaceID string) ([]domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Movie{}
	for _, mv := range m.movies {
		if mv.SpaceID == spaceID {
			out = append(out, mv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memRatings struct{ *memDB }

func (m memRatings) Upsert(_ context.Context, p repository.RatingUpsertParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.ratings {
		if r.kind == p.Kind && r.key == p.Key && r.userID == p.UserID {
			m.ratings[i].value = p.Value
			return false, nil
		}
	}
	m.ratings = append(m.ratings, memRating{kind: p.Kind, key: p.Key, userID: p.UserID, value: p.Value})
	return true, nil
}

func (m memRatings) ForMovie(_ context.Context, kind domain.RatingKind, movieID string) ([]domain.RatingRow[domain.ActorKey], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.RatingRow[domain.ActorKey]{}
	for _, r := range m.ratings {
		if r.kind == kind && r.key.MovieID == movieID {
			out = append(out, domain.RatingRow[domain.ActorKey]{
				Subject: domain.ActorKey{MovieID: r.key.MovieID, ActorName: r.key.ActorName},
				UserID:  r.userID,
				Value:   r.value,
			})
		}
	}
	return out, nil
}

func (m memRatings) MovieRowsInSpace(_ context.Context, spaceID string) ([]domain.RatingRow[string], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.RatingRow[string]{}
	for _, r := range m.ratings {
		if r.kind == domain.RatingKindMovie && m.movies[r.key.MovieID].SpaceID == spaceID {
			out = append(out, domain.RatingRow[string]{Subject: r.key.MovieID, UserID: r.userID, Value: r.value})
		}
	}
	return out, nil
}

func (m memRatings) ActorRowsInSpace(_ context.Context, spaceID string) ([]domain.RatingRow[string], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.RatingRow[string]{}
	for _, r := range m.ratings {
		if r.kind == domain.RatingKindActor && m.movies[r.key.MovieID].SpaceID == spaceID {
			out = append(out, domain.RatingRow[string]{Subject: r.key.ActorName, UserID: r.userID, Value: r.value})
		}
	}
	return out, nil
}

func (m memRatings) ActorRowsByName(_ context.Context, actorName, spaceID string) ([]domain.ActorRatingRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ActorRatingRow{}
	for _, r := range m.ratings {
		if r.kind != domain.RatingKindActor || r.key.ActorName != actorName {
			continue
		}
		row := domain.ActorRatingRow{ActorName: r.key.ActorName, UserID: r.userID, Value: r.value}
		if mv, ok := m.movies[r.key.MovieID]; ok && mv.SpaceID == spaceID {
			row.Movie = &domain.RatedMovie{ID: mv.ID, SpaceID: mv.SpaceID, Title: mv.Title, ImageURL: mv.ImageURL}
		}
		out = append(out, row)
	}
	return out, nil
}

type memActors struct{ *memDB }

func (m memActors) Create(_ context.Context, p repository.ActorCreateParams) (domain.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, at := m.next("actor")
	a := domain.Actor{ID: id, SpaceID: p.SpaceID, Name: p.Name, ImageURL: p.ImageURL, CreatedAt: at}
	m.actors[id] = a
	return a, nil
}

func (m memActors) GetByID(_ context.Context, id string) (domain.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actors[id]
	if !ok {
		return domain.Actor{}, repository.ErrNotFound
	}
	return a, nil
}

func (m memActors) ListBySpace(_ context.Context, spaceID string) ([]domain.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Actor{}
	for _, a := range m.actors {
		if a.SpaceID == spaceID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memInvites struct{ *memDB }

func (m memInvites) Create(_ context.Context, p repository.InviteCreateParams) (domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, at := m.next("invite")
	inv := domain.Invitation{
		ID:            id,
		SpaceID:       p.SpaceID,
		SpaceName:     m.spaces[p.SpaceID].Name,
		InvitedUserID: p.InvitedUserID,
		InvitedBy:     p.InvitedBy,
		Role:          p.Role,
		Status:        domain.InvitePending,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	m.invites[id] = inv
	return inv, nil
}

func (m memInvites) GetByID(_ context.Context, id string) (domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok {
		return domain.Invitation{}, repository.ErrNotFound
	}
	return inv, nil
}

func (m memInvites) ListPendingForUser(_ context.Context, userID string) ([]domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Invitation{}
	for _, inv := range m.invites {
		if inv.InvitedUserID == userID && inv.Status == domain.InvitePending {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m memInvites) Accept(_ context.Context, id string) (domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := m.invites[id]
	if inv.Status != domain.InvitePending {
		return domain.Invitation{}, repository.ErrConflict
	}
	key := [2]string{inv.SpaceID, inv.InvitedUserID}
	if _, ok := m.members[key]; !ok {
		m.members[key] = domain.Membership{SpaceID: inv.SpaceID, UserID: inv.InvitedUserID, Role: inv.Role}
	}
	inv.Status = domain.InviteAccepted
	m.invites[id] = inv
	return inv, nil
}

func (m memInvites) Reject(_ context.Context, id string) (domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := m.invites[id]
	if inv.Status != domain.InvitePending {
		return domain.Invitation{}, repository.ErrConflict
	}
	inv.Status = domain.InviteRejected
	m.invites[id] = inv
	return inv, nil
}

type memProfiles struct{ *memDB }

func (m memProfiles) GetByID(_ context.Context, id string) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return domain.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

func (m memProfiles) SearchByUsername(_ context.Context, q string, limit int) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Profile{}
	for _, p := range m.profiles {
		if strings.Contains(strings.ToLower(p.Username), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memBlobs struct{ *memDB }

func (m memBlobs) Upload(_ context.Context, bucket, name string, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[bucket+"/"+name] = data
	return "http://blob.local/storage/" + bucket + "/" + name, nil
}

type fakeCatalog struct {
	results map[string]*catalog.Result
	err     error
	calls   int
}

func (f *fakeCatalog) Lookup(_ context.Context, title string) (*catalog.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[title]; ok {
		return res, nil
	}
	return nil, catalog.ErrNotFound
}
