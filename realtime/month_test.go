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

func seedExpense(t *testing.T, m *store.Memory, projectID, id, yearMonth, date string, cents int64) {
	t.Helper()
	err := m.Create(context.Background(), models.ExpensesCol(projectID), id, store.Doc{
		"title":       "gasto " + id,
		"category":    "Otros",
		"amountCents": cents,
		"paidByUid":   "u1",
		"yearMonth":   yearMonth,
		"date":        date,
	})
	require.NoError(t, err)
}

func TestMonthWindowShowsOnlyCurrentPeriod(t *testing.T) {
	m := store.NewMemory()
	ref := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	seedExpense(t, m, "p1", "e1", "2026-01", "2026-01-10", 100_00)
	seedExpense(t, m, "p1", "e2", "2026-02", "2026-02-01", 999_99)

	var snaps []MonthSnapshot
	w := NewMonthWindow(m, "p1", ref, func(s MonthSnapshot) { snaps = append(snaps, s) })
	defer w.Close()

	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, "2026-01", last.Period)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "e1", last.Items[0].ID)
	assert.Equal(t, int64(100_00), last.TotalCents)
}

func TestMonthWindowExactTotals(t *testing.T) {
	m := store.NewMemory()
	ref := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Values that lose precision as float64 arithmetic on pesos.
	seedExpense(t, m, "p1", "e1", "2026-03", "2026-03-02", 10)
	seedExpense(t, m, "p1", "e2", "2026-03", "2026-03-03", 20)
	seedExpense(t, m, "p1", "e3", "2026-03", "2026-03-04", 9_007_199_254_740_993)

	w := NewMonthWindow(m, "p1", ref, nil)
	defer w.Close()

	snap := w.Snapshot()
	assert.Equal(t, int64(9_007_199_254_741_023), snap.TotalCents)
}

func TestMonthWindowAdvanceSwitchesPeriod(t *testing.T) {
	m := store.NewMemory()
	ref := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	seedExpense(t, m, "p1", "jan", "2026-01", "2026-01-20", 50_00)
	seedExpense(t, m, "p1", "mar", "2026-03", "2026-03-05", 70_00)

	var snaps []MonthSnapshot
	w := NewMonthWindow(m, "p1", ref, func(s MonthSnapshot) { snaps = append(snaps, s) })
	defer w.Close()

	w.Advance(2)
	require.Equal(t, "2026-03", w.Period())

	last := snaps[len(snaps)-1]
	assert.Equal(t, "2026-03", last.Period)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "mar", last.Items[0].ID)

	// Every emitted frame holds rows of exactly one period.
	for _, s := range snaps {
		for _, e := range s.Items {
			assert.Equal(t, s.Period, e.YearMonth)
		}
	}

	// Exactly one live subscription at any time.
	assert.Equal(t, 1, m.OpenSubscriptions())
}

func TestMonthWindowIgnoresStaleEmissions(t *testing.T) {
	m := store.NewMemory()
	ref := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	w := NewMonthWindow(m, "p1", ref, nil)
	w.Advance(1)
	seedExpense(t, m, "p1", "feb", "2026-02", "2026-02-10", 10_00)
	seedExpense(t, m, "p1", "jan", "2026-01", "2026-01-10", 99_00)

	snap := w.Snapshot()
	assert.Equal(t, "2026-02", snap.Period)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "feb", snap.Items[0].ID)

	w.Close()
	assert.Equal(t, 0, m.OpenSubscriptions())

	// Closed windows ignore further navigation.
	w.Advance(1)
	assert.Equal(t, 0, m.OpenSubscriptions())
}
