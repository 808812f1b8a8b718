package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hogarlabs/hogar-api/models"
)

func exp(uid string, cents int64) models.Expense {
	return models.Expense{PaidByUID: uid, PaidByName: uid, AmountCents: cents}
}

func TestContributionsEmpty(t *testing.T) {
	sum := Contributions(nil, nil)
	assert.Empty(t, sum.Rows)
	assert.Zero(t, sum.TotalCents)
	assert.False(t, sum.HasLeaderMargin)
}

func TestContributionsTotalsAndPercents(t *testing.T) {
	expenses := []models.Expense{
		exp("u1", 100_000),
		exp("u2", 50_000),
		exp("u1", 50_000),
	}
	roster := []RosterEntry{
		{UID: "u1", DisplayName: "Ana"},
		{UID: "u2", DisplayName: "Bruno"},
	}

	sum := Contributions(expenses, roster)
	assert.Equal(t, int64(200_000), sum.TotalCents)

	assert.Len(t, sum.Rows, 2)
	assert.Equal(t, "u1", sum.Rows[0].UID)
	assert.Equal(t, "Ana", sum.Rows[0].Name)
	assert.Equal(t, int64(150_000), sum.Rows[0].TotalCents)
	assert.Equal(t, 75, sum.Rows[0].Percent)
	assert.Equal(t, int64(50_000), sum.Rows[1].TotalCents)
	assert.Equal(t, 25, sum.Rows[1].Percent)

	assert.True(t, sum.HasLeaderMargin)
	assert.Equal(t, 50.0, sum.LeaderMarginPts)
}

func TestContributionsLeaderMarginOneDecimal(t *testing.T) {
	sum := Contributions([]models.Expense{
		exp("u1", 2),
		exp("u2", 1),
	}, nil)
	// 66.666..% vs 33.333..% -> 33.3 points.
	assert.True(t, sum.HasLeaderMargin)
	assert.Equal(t, 33.3, sum.LeaderMarginPts)
}

func TestContributionsSinglePayerNoMargin(t *testing.T) {
	sum := Contributions([]models.Expense{exp("u1", 10_00)}, nil)
	assert.Len(t, sum.Rows, 1)
	assert.Equal(t, 100, sum.Rows[0].Percent)
	assert.False(t, sum.HasLeaderMargin)
}

func TestContributionsUnknownPayerFallsBackToExpenseName(t *testing.T) {
	sum := Contributions([]models.Expense{
		{PaidByUID: "ghost123", PaidByName: "Viejo Nombre", AmountCents: 100},
	}, []RosterEntry{{UID: "u1", DisplayName: "Ana"}})
	assert.Equal(t, "Viejo Nombre", sum.Rows[0].Name)
}

func TestFilterByPayer(t *testing.T) {
	expenses := []models.Expense{exp("u1", 1), exp("u2", 2), exp("u1", 3)}

	all := FilterByPayer(expenses, "")
	assert.Len(t, all, 3)

	only := FilterByPayer(expenses, "u1")
	assert.Len(t, only, 2)
	for _, e := range only {
		assert.Equal(t, "u1", e.PaidByUID)
	}

	// Filtering is idempotent.
	assert.Equal(t, only, FilterByPayer(only, "u1"))

	assert.Empty(t, FilterByPayer(expenses, "nobody"))
}
