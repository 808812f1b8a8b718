package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
)

func seedProject(t *testing.T, m *store.Memory, id, owner, name, status string) {
	t.Helper()
	require.NoError(t, m.Set(context.Background(), models.ProjectsCol, id, store.Doc{
		"ownerUid": owner,
		"name":     name,
		"currency": "ARS",
		"status":   status,
	}))
}

func shareWith(t *testing.T, m *store.Memory, projectID, uid string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, models.MembersCol(projectID), uid, store.Doc{
		"uid": uid, "role": "member",
	}))
	require.NoError(t, m.Set(ctx, models.FlatMembersCol, models.FlatMemberID(projectID, uid), store.Doc{
		"projectId": projectID, "uid": uid, "role": "member",
	}))
}

func listIDs(items []models.ProjectListItem) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

func TestSharedProjectsLiveViaFlatIndex(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	seedProject(t, m, "p1", "owner1", "Casa", "active")
	shareWith(t, m, "p1", "u2")

	var last []models.ProjectListItem
	s := NewSharedProjects(m, "u2", SharedViaFlatIndex, func(items []models.ProjectListItem) { last = items })
	defer s.Close()

	require.Len(t, s.Snapshot(), 1)
	assert.Equal(t, "p1", s.Snapshot()[0].ID)
	assert.Equal(t, models.RoleMember, s.Snapshot()[0].Role)

	// A newly shared project appears without resubscribing by hand.
	seedProject(t, m, "p2", "owner9", "Quinta", "active")
	shareWith(t, m, "p2", "u2")
	assert.ElementsMatch(t, []string{"p1", "p2"}, listIDs(last))

	// Archiving drops the project from the live list.
	require.NoError(t, m.Merge(ctx, models.ProjectsCol, "p1", store.Doc{"status": "archived"}))
	assert.Equal(t, []string{"p2"}, listIDs(last))

	// Unsharing closes the per-project doc subscriptions.
	require.NoError(t, m.Delete(ctx, models.FlatMembersCol, models.FlatMemberID("p1", "u2")))
	require.NoError(t, m.Delete(ctx, models.FlatMembersCol, models.FlatMemberID("p2", "u2")))
	assert.Empty(t, last)
	assert.Equal(t, 1, m.OpenSubscriptions(), "only the flat-index upstream remains")
}

func TestSharedProjectsViaCollectionGroup(t *testing.T) {
	m := store.NewMemory()

	seedProject(t, m, "p1", "owner1", "Casa", "active")
	shareWith(t, m, "p1", "u2")

	s := NewSharedProjects(m, "u2", SharedViaGroup, nil)
	defer s.Close()

	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
}

func TestFetchOwnedAndShared(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	seedProject(t, m, "p1", "u1", "Propio", "active")
	seedProject(t, m, "p2", "other", "Ajeno", "active")
	shareWith(t, m, "p2", "u1")

	owned, err := FetchOwnedProjects(ctx, m, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "p1", owned[0].ID)
	assert.Equal(t, models.RoleOwner, owned[0].Role)

	shared, err := FetchSharedProjects(ctx, m, "u1", SharedViaFlatIndex)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "p2", shared[0].ID)

	sharedGroup, err := FetchSharedProjects(ctx, m, "u1", SharedViaGroup)
	require.NoError(t, err)
	assert.Equal(t, listIDs(shared), listIDs(sharedGroup))
}
