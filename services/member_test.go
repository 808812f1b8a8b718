package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
)

func TestMemberRemove(t *testing.T) {
	gw, members, _, invites, projectID := newFixture(t)
	ctx := context.Background()

	inv, err := invites.Generate(ctx, projectID, "owner1", 7)
	require.NoError(t, err)
	_, err = invites.Accept(ctx, inv.Code, "u2", "Bruno")
	require.NoError(t, err)

	assert.ErrorIs(t, members.Remove(ctx, projectID, "u2", "owner1"), ErrNotOwner)
	assert.Error(t, members.Remove(ctx, projectID, "owner1", "owner1"), "owner is unremovable")

	require.NoError(t, members.Remove(ctx, projectID, "owner1", "u2"))

	_, err = gw.Get(ctx, models.MembersCol(projectID), "u2")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = gw.Get(ctx, models.FlatMembersCol, models.FlatMemberID(projectID, "u2"))
	assert.ErrorIs(t, err, store.ErrNotFound, "flat entry removed in the same batch")
}

func TestEnsureSelfMembershipFillsOnlyMissingFields(t *testing.T) {
	gw, members, _, _, projectID := newFixture(t)
	ctx := context.Background()

	// A legacy record: role present, displayName missing, and no flat
	// index entry at all.
	require.NoError(t, gw.Set(ctx, models.MembersCol(projectID), "u9", store.Doc{
		"uid":  "u9",
		"role": "owner",
	}))

	require.NoError(t, members.EnsureSelfMembership(ctx, projectID, "u9", "Carla"))

	doc, err := gw.Get(ctx, models.MembersCol(projectID), "u9")
	require.NoError(t, err)
	assert.Equal(t, "owner", doc.Data["role"], "existing role untouched")
	assert.Equal(t, "Carla", doc.Data["displayName"])
	assert.NotNil(t, doc.Data["joinedAt"])

	flat, err := gw.Get(ctx, models.FlatMembersCol, models.FlatMemberID(projectID, "u9"))
	require.NoError(t, err)
	assert.Equal(t, "owner", flat.Data["role"])

	// Running it again is a no-op for populated fields.
	require.NoError(t, members.EnsureSelfMembership(ctx, projectID, "u9", "Otro Nombre"))
	doc, err = gw.Get(ctx, models.MembersCol(projectID), "u9")
	require.NoError(t, err)
	assert.Equal(t, "Carla", doc.Data["displayName"])
}

func TestIsMemberAndIsOwner(t *testing.T) {
	_, members, _, _, projectID := newFixture(t)
	ctx := context.Background()

	ok, err := members.IsMember(ctx, projectID, "owner1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = members.IsMember(ctx, projectID, "nadie")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = members.IsOwner(ctx, projectID, "owner1")
	require.NoError(t, err)
	assert.True(t, ok)
}
