package domain

import (
	"sort"
	"time"
)

// Membership roles. The role is opaque to the resolver; only the row's
// existence matters.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Space is a shared collection of movies and actors.
type Space struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
}

// Membership links a user to a space.
type Membership struct {
	SpaceID   string
	UserID    string
	Role      string
	CreatedAt time.Time
}

// MergeSpaces unions owned and joined spaces, keeping one entry per id.
// A later occurrence of an id replaces the earlier one. The result is
// ordered by creation time, then id.
func MergeSpaces(owned, joined []Space) []Space {
	byID := make(map[string]Space, len(owned)+len(joined))
	for _, s := range owned {
		byID[s.ID] = s
	}
	for _, s := range joined {
		byID[s.ID] = s
	}

	out := make([]Space, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SpaceIDs extracts the space ids from membership rows.
func SpaceIDs(memberships []Membership) []string {
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.SpaceID)
	}
	return ids
}
