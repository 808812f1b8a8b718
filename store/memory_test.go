package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "projects", "p1", Doc{"name": "Casa"}))

	doc, err := m.Get(ctx, "projects", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", doc.ID)
	assert.Equal(t, "Casa", doc.Data["name"])

	err = m.Create(ctx, "projects", "p1", Doc{"name": "Otra"})
	assert.ErrorIs(t, err, ErrExists)

	_, err = m.Get(ctx, "projects", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMergeKeepsOtherFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "projects", "p1", Doc{"name": "Casa", "currency": "ARS"}))
	require.NoError(t, m.Merge(ctx, "projects", "p1", Doc{"name": "Hogar"}))

	doc, err := m.Get(ctx, "projects", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Hogar", doc.Data["name"])
	assert.Equal(t, "ARS", doc.Data["currency"])
}

func TestMemoryQueryFilterAndOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "projects/p1/expenses", "e1", Doc{"yearMonth": "2026-01", "date": "2026-01-05"}))
	require.NoError(t, m.Create(ctx, "projects/p1/expenses", "e2", Doc{"yearMonth": "2026-01", "date": "2026-01-20"}))
	require.NoError(t, m.Create(ctx, "projects/p1/expenses", "e3", Doc{"yearMonth": "2026-02", "date": "2026-02-01"}))

	docs, err := m.Query(ctx, Query{
		Collection: "projects/p1/expenses",
		Filters:    []Filter{{Field: "yearMonth", Value: "2026-01"}},
		OrderBy:    "date",
		Desc:       true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "e2", docs[0].ID)
	assert.Equal(t, "e1", docs[1].ID)
}

func TestMemoryCollectionGroupQuery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "projects/p1/members", "u1", Doc{"uid": "u1"}))
	require.NoError(t, m.Create(ctx, "projects/p2/members", "u1", Doc{"uid": "u1"}))
	require.NoError(t, m.Create(ctx, "projects/p1/expenses", "e1", Doc{"uid": "u1"}))

	docs, err := m.Query(ctx, Query{
		Group:   "members",
		Filters: []Filter{{Field: "uid", Value: "u1"}},
	})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemorySubscribeEmitsInitialAndUpdates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var frames [][]Document
	cancel := m.Subscribe(Query{Collection: "projects/p1/expenses"},
		func(docs []Document) { frames = append(frames, docs) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	)

	require.Len(t, frames, 1, "initial snapshot")
	assert.Empty(t, frames[0])

	require.NoError(t, m.Create(ctx, "projects/p1/expenses", "e1", Doc{"title": "Super"}))
	require.Len(t, frames, 2)
	assert.Len(t, frames[1], 1)

	cancel()
	require.NoError(t, m.Create(ctx, "projects/p1/expenses", "e2", Doc{"title": "Luz"}))
	assert.Len(t, frames, 2, "no emissions after cancel")

	assert.Equal(t, 0, m.OpenSubscriptions())
}

func TestMemorySubscribeDoc(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var got []*Document
	cancel := m.SubscribeDoc("projects", "p1",
		func(d *Document) { got = append(got, d) },
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	)
	defer cancel()

	require.Len(t, got, 1)
	assert.Nil(t, got[0], "missing doc emits nil")

	require.NoError(t, m.Create(ctx, "projects", "p1", Doc{"name": "Casa"}))
	require.Len(t, got, 2)
	require.NotNil(t, got[1])
	assert.Equal(t, "Casa", got[1].Data["name"])

	require.NoError(t, m.Delete(ctx, "projects", "p1"))
	require.Len(t, got, 3)
	assert.Nil(t, got[2], "deletion emits nil")
}

func TestMemoryBatchAllOrNothing(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "projects", "p1", Doc{"name": "Casa"}))

	b := m.Batch()
	b.Create("invites", "CODE1", Doc{"status": "pending"})
	b.Create("projects", "p1", Doc{"name": "conflict"})
	err := b.Commit(ctx)
	require.ErrorIs(t, err, ErrExists)

	_, err = m.Get(ctx, "invites", "CODE1")
	assert.ErrorIs(t, err, ErrNotFound, "failed batch must not leave partial writes")
}

func TestMemoryBatchUpdateRequiresDoc(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	b := m.Batch()
	b.Update("projects", "ghost", Doc{"name": "x"})
	assert.ErrorIs(t, b.Commit(ctx), ErrNotFound)

	b = m.Batch()
	b.Merge("projects", "ghost", Doc{"name": "x"})
	assert.NoError(t, b.Commit(ctx), "merge may create")
}
