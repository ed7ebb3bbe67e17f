package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when an invitation is not in a state that allows the move.
var ErrInvalidTransition = errors.New("domain: invalid invitation transition")

// InviteStatus is the lifecycle state of an invitation.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s InviteStatus) Valid() bool {
	switch s {
	case InvitePending, InviteAccepted, InviteRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s InviteStatus) Terminal() bool {
	return s == InviteAccepted || s == InviteRejected
}

// CanTransition allows only pending -> accepted and pending -> rejected.
func CanTransition(from, to InviteStatus) bool {
	return from == InvitePending && (to == InviteAccepted || to == InviteRejected)
}

// Invitation asks a user to join a space.
type Invitation struct {
	ID            string
	SpaceID       string
	SpaceName     string
	InvitedUserID string
	InvitedBy     string
	Role          string
	Status        InviteStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transition returns a copy of inv moved to the target status.
func (inv Invitation) Transition(to InviteStatus) (Invitation, error) {
	if !CanTransition(inv.Status, to) {
		return inv, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, to)
	}
	inv.Status = to
	return inv, nil
}
