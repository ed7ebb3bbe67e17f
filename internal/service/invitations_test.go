package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
)

func TestInvitationsSearchExcludesCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.db.addProfile("alicia")

	found, err := f.svc.Invitations.SearchProfiles(ctx, f.alice, "ALI")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alicia", found[0].Username)

	none, err := f.svc.Invitations.SearchProfiles(ctx, f.alice, "  ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInvitationsOnlyOwnerInvites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	space, err := f.svc.Spaces.Create(ctx, f.alice, "Home", "")
	require.NoError(t, err)

	inv, err := f.svc.Invitations.Invite(ctx, f.alice, space.ID, f.bob)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitePending, inv.Status)
	assert.Equal(t, domain.RoleMember, inv.Role)
	assert.Equal(t, "Home", inv.SpaceName)

	_, err = f.svc.Invitations.Accept(ctx, f.bob, inv.ID)
	require.NoError(t, err)

	_, err = f.svc.Invitations.Invite(ctx, f.bob, space.ID, f.carol)
	assert.ErrorIs(t, err, ErrForbidden, "members cannot invite")
	_, err = f.svc.Invitations.Invite(ctx, f.carol, space.ID, f.carol)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Invitations.Invite(ctx, f.alice, space.ID, f.alice)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Invitations.Invite(ctx, f.alice, space.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvitationsAcceptCreatesMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	space, err := f.svc.Spaces.Create(ctx, f.alice, "Home", "")
	require.NoError(t, err)
	inv, err := f.svc.Invitations.Invite(ctx, f.alice, space.ID, f.bob)
	require.NoError(t, err)

	pending, err := f.svc.Invitations.ListPending(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.svc.Invitations.Accept(ctx, f.carol, inv.ID)
	assert.ErrorIs(t, err, ErrForbidden, "only the invitee responds")

	accepted, err := f.svc.Invitations.Accept(ctx, f.bob, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteAccepted, accepted.Status)
	assert.Equal(t, 2, f.db.memberCount(space.ID))

	_, err = f.svc.Invitations.Reject(ctx, f.bob, inv.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.Invitations.Accept(ctx, f.bob, inv.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, f.db.memberCount(space.ID))

	pending, err = f.svc.Invitations.ListPending(ctx, f.bob)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInvitationsRejectLeavesMembershipUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	space, err := f.svc.Spaces.Create(ctx, f.alice, "Home", "")
	require.NoError(t, err)
	inv, err := f.svc.Invitations.Invite(ctx, f.alice, space.ID, f.bob)
	require.NoError(t, err)

	rejected, err := f.svc.Invitations.Reject(ctx, f.bob, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InviteRejected, rejected.Status)
	assert.Equal(t, 1, f.db.memberCount(space.ID))

	_, err = f.svc.Spaces.Get(ctx, f.bob, space.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Invitations.Accept(ctx, f.bob, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
