package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
)

func newFixture(t *testing.T) (*store.Memory, *MemberService, *ProjectService, *InviteService, string) {
	t.Helper()
	gw := store.NewMemory()
	members := NewMemberService(gw)
	projects := NewProjectService(gw, members)
	invites := NewInviteService(gw, members)

	p, err := projects.Create(context.Background(), "owner1", "Ana", "Casa", "ARS", "")
	require.NoError(t, err)
	return gw, members, projects, invites, p.ID
}

func TestInviteGenerateOwnerOnly(t *testing.T) {
	_, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	_, err := invites.Generate(ctx, projectID, "intruso", 7)
	assert.ErrorIs(t, err, ErrNotOwner)

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)
	assert.Len(t, inv.Code, 6)
	assert.Equal(t, inv.Code, inv.ID, "code is the document id")
	assert.Equal(t, models.InvitePending, inv.Status)
	assert.True(t, inv.ExpiresAt.After(time.Now()))
}

func TestInviteTTLClamped(t *testing.T) {
	_, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	inv, err := invites.Generate(ctx, projectID, "owner1", 900)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), inv.ExpiresAt, time.Minute)

	inv, err = invites.Generate(ctx, projectID, "owner1", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), inv.ExpiresAt, time.Minute)
}

func TestInviteAcceptAddsMemberAtomically(t *testing.T) {
	gw, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)

	got, err := invites.Accept(ctx, "  "+inv.Code+"  ", "u2", "Bruno")
	require.NoError(t, err)
	assert.Equal(t, projectID, got)

	member, err := gw.Get(ctx, models.MembersCol(projectID), "u2")
	require.NoError(t, err)
	assert.Equal(t, "member", member.Data["role"])
	assert.Equal(t, "Bruno", member.Data["displayName"])

	_, err = gw.Get(ctx, models.FlatMembersCol, models.FlatMemberID(projectID, "u2"))
	require.NoError(t, err, "flat index entry written in the same batch")

	invDoc, err := gw.Get(ctx, models.InvitesCol, inv.Code)
	require.NoError(t, err)
	assert.Equal(t, string(models.InviteAccepted), invDoc.Data["status"])
	assert.Equal(t, "u2", invDoc.Data["acceptedBy"])
}

func TestInviteSingleUse(t *testing.T) {
	_, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)

	_, err = invites.Accept(ctx, inv.Code, "u2", "Bruno")
	require.NoError(t, err)

	_, err = invites.Accept(ctx, inv.Code, "u3", "Carla")
	assert.ErrorIs(t, err, ErrInviteUsed)
}

func TestInviteAcceptExistingMemberStillBurnsCode(t *testing.T) {
	gw, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)

	// The owner already has a member record, so the atomic path fails;
	// the code must still be consumed.
	got, err := invites.Accept(ctx, inv.Code, "owner1", "Ana")
	require.NoError(t, err)
	assert.Equal(t, projectID, got)

	invDoc, err := gw.Get(ctx, models.InvitesCol, inv.Code)
	require.NoError(t, err)
	assert.Equal(t, string(models.InviteAccepted), invDoc.Data["status"])

	member, err := gw.Get(ctx, models.MembersCol(projectID), "owner1")
	require.NoError(t, err)
	assert.Equal(t, "owner", member.Data["role"], "existing record untouched")
}

func TestInviteAcceptExpired(t *testing.T) {
	gw, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)

	require.NoError(t, gw.Merge(ctx, models.InvitesCol, inv.Code, store.Doc{
		"expiresAt": time.Now().Add(-time.Hour),
	}))

	_, err = invites.Accept(ctx, inv.Code, "u2", "Bruno")
	assert.ErrorIs(t, err, ErrInviteExpired)
}

func TestInviteAcceptUnknownCode(t *testing.T) {
	_, _, _, invites, _ := newFixture(t)
	ctx := context.Background()

	_, err := invites.Accept(ctx, "NOPE42", "u2", "Bruno")
	assert.ErrorIs(t, err, ErrInviteNotFound)

	_, err = invites.Accept(ctx, "   ", "u2", "Bruno")
	assert.ErrorIs(t, err, ErrInviteInvalid)
}

func TestInviteRevoke(t *testing.T) {
	_, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)

	assert.ErrorIs(t, invites.Revoke(ctx, inv.Code, "extranjero"), ErrNotOwner)
	require.NoError(t, invites.Revoke(ctx, inv.Code, "owner1"))
	assert.ErrorIs(t, invites.Revoke(ctx, inv.Code, "owner1"), ErrInviteNotFound)
}

func TestInviteRevokeAcceptedFails(t *testing.T) {
	_, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)
	_, err = invites.Accept(ctx, inv.Code, "u2", "Bruno")
	require.NoError(t, err)

	assert.ErrorIs(t, invites.Revoke(ctx, inv.Code, "owner1"), ErrInviteNotPending)
}

func TestInviteListPending(t *testing.T) {
	_, _, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	a, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)
	b, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)
	_, err = invites.Accept(ctx, b.Code, "u2", "Bruno")
	require.NoError(t, err)

	pending, err := invites.ListPending(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.Code, pending[0].Code)
}

// collideGateway forces the first n invite creates to collide.
type collideGateway struct {
	store.Gateway
	remaining int
}

func (g *collideGateway) Create(ctx context.Context, collection, id string, data store.Doc) error {
	if collection == models.InvitesCol && g.remaining > 0 {
		g.remaining--
		return store.ErrExists
	}
	return g.Gateway.Create(ctx, collection, id, data)
}

func TestInviteGenerateRetriesOnCollision(t *testing.T) {
	gw, members, _, _, projectID := newFixture(t)
	ctx := context.Background()

	colliding := &collideGateway{Gateway: gw, remaining: 4}
	invites := NewInviteService(colliding, members)

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err, "fifth attempt succeeds")
	assert.NotEmpty(t, inv.Code)
	assert.Equal(t, 0, colliding.remaining)
}

func TestInviteGenerateGivesUpAfterFiveCollisions(t *testing.T) {
	gw, members, _, _, projectID := newFixture(t)
	ctx := context.Background()

	colliding := &collideGateway{Gateway: gw, remaining: 5}
	invites := NewInviteService(colliding, members)

	_, err := invites.Generate(ctx, projectID, "owner1", 7)
	assert.ErrorIs(t, err, ErrCodeAllocation)
	assert.Equal(t, 0, colliding.remaining)
}
