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

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestExpenseCreateDerivesYearMonth(t *testing.T) {
	gw, _, _, _, projectID := newFixture(t)
	ctx := context.Background()
	expenses := NewExpenseService(gw)

	e, err := expenses.Create(ctx, projectID, "owner1", models.ExpenseInput{
		Title:       "Supermercado",
		Category:    "Alimentos",
		AmountCents: 45_990,
		PaidByUID:   "owner1",
		PaidByName:  "Ana",
		Date:        mustDate("2026-01-31"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-01", e.YearMonth)

	_, err = expenses.Create(ctx, projectID, "owner1", models.ExpenseInput{
		Title:       "Algo",
		Category:    "NoExiste",
		AmountCents: 100,
		PaidByUID:   "owner1",
		Date:        mustDate("2026-01-31"),
	})
	assert.Error(t, err, "unknown category rejected")
}

func TestExpenseUpdateMovesBetweenMonths(t *testing.T) {
	gw, _, _, _, projectID := newFixture(t)
	ctx := context.Background()
	expenses := NewExpenseService(gw)

	e, err := expenses.Create(ctx, projectID, "owner1", models.ExpenseInput{
		Title:       "Alquiler",
		Category:    "Hogar",
		AmountCents: 500_000,
		PaidByUID:   "owner1",
		Date:        mustDate("2026-01-01"),
	})
	require.NoError(t, err)

	require.NoError(t, expenses.Update(ctx, projectID, e.ID, "owner1", models.ExpenseInput{
		Title:       "Alquiler",
		Category:    "Hogar",
		AmountCents: 500_000,
		PaidByUID:   "owner1",
		Date:        mustDate("2026-02-01"),
	}))

	jan, _, err := expenses.ListMonth(ctx, projectID, "2026-01")
	require.NoError(t, err)
	assert.Empty(t, jan)

	feb, total, err := expenses.ListMonth(ctx, projectID, "2026-02")
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, int64(500_000), total)
}

func TestExpenseUpdateMissingFails(t *testing.T) {
	gw, _, _, _, projectID := newFixture(t)
	expenses := NewExpenseService(gw)

	err := expenses.Update(context.Background(), projectID, "fantasma", "owner1", models.ExpenseInput{
		Title:       "x",
		Category:    "Otros",
		AmountCents: 1,
		PaidByUID:   "u1",
		Date:        mustDate("2026-01-01"),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExpenseListMonthOrdersNewestFirst(t *testing.T) {
	gw, _, _, _, projectID := newFixture(t)
	ctx := context.Background()
	expenses := NewExpenseService(gw)

	for _, d := range []string{"2026-03-05", "2026-03-20", "2026-03-01"} {
		_, err := expenses.Create(ctx, projectID, "owner1", models.ExpenseInput{
			Title:       "gasto " + d,
			Category:    "Otros",
			AmountCents: 1_000,
			PaidByUID:   "owner1",
			Date:        mustDate(d),
		})
		require.NoError(t, err)
	}

	items, total, err := expenses.ListMonth(ctx, projectID, "2026-03")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int64(3_000), total)
	assert.True(t, items[0].Date.After(items[1].Date))
	assert.True(t, items[1].Date.After(items[2].Date))
}
