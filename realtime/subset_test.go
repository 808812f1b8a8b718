package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hogarlabs/hogar-api/store"
)

func ids(ss ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		out[s] = struct{}{}
	}
	return out
}

func TestSubscriptionSetReconcile(t *testing.T) {
	opens := make(map[string]int)
	closes := make(map[string]int)

	set := NewSubscriptionSet(func(id string) store.CancelFunc {
		opens[id]++
		return func() { closes[id]++ }
	})

	set.Reconcile(ids("a", "b"))
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 1, opens["a"])
	assert.Equal(t, 1, opens["b"])

	// Unchanged ids must not be reopened.
	set.Reconcile(ids("a", "b", "c"))
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, 1, opens["a"])
	assert.Equal(t, 1, opens["c"])
	assert.Zero(t, closes["a"])

	set.Reconcile(ids("c"))
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 1, closes["a"])
	assert.Equal(t, 1, closes["b"])
	assert.True(t, set.Contains("c"))
	assert.False(t, set.Contains("a"))

	set.Reconcile(nil)
	assert.Zero(t, set.Len())
	assert.Equal(t, 1, closes["c"])
}

func TestSubscriptionSetCloseIdempotent(t *testing.T) {
	closes := 0
	set := NewSubscriptionSet(func(id string) store.CancelFunc {
		return func() { closes++ }
	})

	set.Reconcile(ids("a", "b"))
	set.Close()
	set.Close()
	assert.Equal(t, 2, closes)
	assert.Zero(t, set.Len())

	// A closed set stays closed.
	set.Reconcile(ids("c"))
	assert.Zero(t, set.Len())
}
