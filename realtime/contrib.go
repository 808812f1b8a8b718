package realtime

import (
	"math"
	"sort"

	"github.com/hogarlabs/hogar-api/models"
)

// ContributionRow is one payer's share of a month.
type ContributionRow struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	TotalCents int64  `json:"totalCents"`
	Percent    int    `json:"percent"`
}

// ContributionSummary is the per-member breakdown of a month's
// expenses. LeaderMarginPts is the gap between the top two payers in
// percentage points (one decimal); it is only meaningful when
// HasLeaderMargin is true, i.e. at least two payers exist.
type ContributionSummary struct {
	Rows            []ContributionRow `json:"rows"`
	TotalCents      int64             `json:"totalCents"`
	LeaderMarginPts float64           `json:"leaderMarginPts"`
	HasLeaderMargin bool              `json:"hasLeaderMargin"`
}

// Contributions computes per-payer totals, display percentages and the
// leader margin. Pure: no I/O, integer accumulation only. Ties keep
// the payers' first-seen order in the expense list.
func Contributions(expenses []models.Expense, roster []RosterEntry) ContributionSummary {
	nameByUID := make(map[string]string, len(roster))
	for _, m := range roster {
		nameByUID[m.UID] = m.DisplayName
	}

	totals := make(map[string]int64)
	var order []string
	fallback := make(map[string]string)
	for _, e := range expenses {
		if _, seen := totals[e.PaidByUID]; !seen {
			order = append(order, e.PaidByUID)
		}
		totals[e.PaidByUID] += e.AmountCents
		if fallback[e.PaidByUID] == "" {
			fallback[e.PaidByUID] = e.PaidByName
		}
	}

	var totalAll int64
	for _, t := range totals {
		totalAll += t
	}

	rows := make([]ContributionRow, 0, len(order))
	for _, uid := range order {
		name := nameByUID[uid]
		if name == "" {
			name = fallback[uid]
		}
		name = DisplayLabel(name, uid)

		pct := 0
		if totalAll > 0 {
			pct = int(math.Round(float64(totals[uid]) * 100 / float64(totalAll)))
		}
		rows = append(rows, ContributionRow{
			UID:        uid,
			Name:       name,
			TotalCents: totals[uid],
			Percent:    pct,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalCents > rows[j].TotalCents })

	summary := ContributionSummary{Rows: rows, TotalCents: totalAll}
	if len(rows) >= 2 && totalAll > 0 {
		p1 := float64(rows[0].TotalCents) * 100 / float64(totalAll)
		p2 := float64(rows[1].TotalCents) * 100 / float64(totalAll)
		summary.LeaderMarginPts = math.Round(math.Abs(p1-p2)*10) / 10
		summary.HasLeaderMargin = true
	}
	return summary
}

// FilterByPayer narrows an expense list to one payer. An empty uid
// means "all" and returns the input unchanged; the relative order is
// always preserved.
func FilterByPayer(expenses []models.Expense, uid string) []models.Expense {
	if uid == "" {
		return expenses
	}
	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.PaidByUID == uid {
			out = append(out, e)
		}
	}
	return out
}
