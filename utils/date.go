package utils

import "time"

// PeriodKey derives the canonical YYYY-MM month key used to window
// expenses. Every expense write recomputes it from the occurrence date;
// it is never accepted from the client.
func PeriodKey(t time.Time) string {
	return t.Format("2006-01")
}

// AddMonths shifts a date by whole months, keeping the day-of-month
// with Go's normalization (Jan 31 + 1 month rolls into March).
func AddMonths(t time.Time, diff int) time.Time {
	return t.AddDate(0, diff, 0)
}
