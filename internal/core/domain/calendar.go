package domain

import "time"

const day = 24 * time.Hour

// EndOfDay normalizes t to the last second of its calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// AddDaysEndOfDay returns the end of the day that lies days after t.
func AddDaysEndOfDay(t time.Time, days int) time.Time {
	return EndOfDay(t.AddDate(0, 0, days))
}

// OverdueDays is max(0, floor((now - due) / 24h)).
func OverdueDays(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / day)
}
