package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hogarlabs/hogar-api/models"
	"github.com/hogarlabs/hogar-api/store"
)

func seedMember(t *testing.T, m *store.Memory, projectID, uid, role, name string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, models.MembersCol(projectID), uid, store.Doc{
		"uid":         uid,
		"role":        role,
		"displayName": name,
		"joinedAt":    time.Now().UTC(),
	}))
	require.NoError(t, m.Set(ctx, models.FlatMembersCol, models.FlatMemberID(projectID, uid), store.Doc{
		"projectId": projectID,
		"uid":       uid,
		"role":      role,
	}))
}

func memberUIDs(snap RosterSnapshot) []string {
	out := make([]string, 0, len(snap.Members))
	for _, m := range snap.Members {
		out = append(out, m.UID)
	}
	return out
}

func TestRosterTracksMembership(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	seedMember(t, m, "p1", "owner1", "owner", "Ana")
	seedMember(t, m, "p1", "u2", "member", "Bruno")

	r := NewRoster(m, "p1", RosterFromMembers, nil)
	defer r.Close()

	snap := r.Snapshot()
	require.Len(t, snap.Members, 2)
	assert.Equal(t, []string{"owner1", "u2"}, memberUIDs(snap), "owner sorts first")

	// One upstream + one doc subscription per member.
	assert.Equal(t, 3, m.OpenSubscriptions())

	seedMember(t, m, "p1", "u3", "member", "Carla")
	snap = r.Snapshot()
	assert.Len(t, snap.Members, 3)
	assert.Equal(t, 4, m.OpenSubscriptions())

	// Removal closes the member's subscription; no leaks.
	require.NoError(t, m.Delete(ctx, models.MembersCol("p1"), "u3"))
	snap = r.Snapshot()
	assert.Len(t, snap.Members, 2)
	assert.Equal(t, 3, m.OpenSubscriptions())
}

func TestRosterMergesBothSourcesWithoutDuplicates(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	seedMember(t, m, "p1", "u1", "owner", "Ana")

	// u2 exists only in the flat index (partial write from an old
	// client); the roster must still pick it up, once.
	require.NoError(t, m.Set(ctx, models.FlatMembersCol, models.FlatMemberID("p1", "u2"), store.Doc{
		"projectId": "p1",
		"uid":       "u2",
		"role":      "member",
	}))

	r := NewRoster(m, "p1", RosterFromBoth, nil)
	defer r.Close()

	snap := r.Snapshot()
	assert.Equal(t, []string{"u1", "u2"}, memberUIDs(snap))

	// Two upstreams + one doc subscription per distinct uid.
	assert.Equal(t, 4, m.OpenSubscriptions())
}

func TestRosterNameUpdatesFlowThrough(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	seedMember(t, m, "p1", "u1", "owner", "Ana")

	var last RosterSnapshot
	r := NewRoster(m, "p1", RosterFromMembers, func(s RosterSnapshot) { last = s })
	defer r.Close()

	require.NoError(t, m.Merge(ctx, models.MembersCol("p1"), "u1", store.Doc{"displayName": "Ana Maria"}))
	require.Len(t, last.Members, 1)
	assert.Equal(t, "Ana Maria", last.Members[0].DisplayName)
}

func TestRosterCloseReleasesEverything(t *testing.T) {
	m := store.NewMemory()

	seedMember(t, m, "p1", "u1", "owner", "Ana")
	seedMember(t, m, "p1", "u2", "member", "Bruno")

	r := NewRoster(m, "p1", RosterFromBoth, nil)
	require.Greater(t, m.OpenSubscriptions(), 0)

	r.Close()
	assert.Equal(t, 0, m.OpenSubscriptions())

	opened, closed := m.Counts()
	assert.Equal(t, opened, closed)
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "Ana", DisplayLabel("Ana", "abcdef123456"))
	assert.Equal(t, "abcdef", DisplayLabel("", "abcdef123456"))
	assert.Equal(t, "ab", DisplayLabel("", "ab"))
}
