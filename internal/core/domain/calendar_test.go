package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/library_circulation_app/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestEndOfDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2026, 3, 14, 9, 26, 53, 589, loc)

	got := domain.EndOfDay(in)

	assert.Equal(t, time.Date(2026, 3, 14, 23, 59, 59, 0, loc), got)
	assert.Equal(t, loc, got.Location())
}

func TestAddDaysEndOfDay(t *testing.T) {
	issued := time.Date(2026, 1, 25, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 2, 9, 23, 59, 59, 0, time.UTC), domain.AddDaysEndOfDay(issued, 15))
	assert.Equal(t, time.Date(2026, 1, 25, 23, 59, 59, 0, time.UTC), domain.AddDaysEndOfDay(issued, 0))
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2026, 5, 1, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before due", due.Add(-48 * time.Hour), 0},
		{"exactly due", due, 0},
		{"partial first day", due.Add(23 * time.Hour), 0},
		{"one full day", due.Add(24 * time.Hour), 1},
		{"ten days and change", due.Add(10*24*time.Hour + 5*time.Hour), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.OverdueDays(due, tt.now))
			assert.Equal(t, tt.want, domain.Loan{DueDate: due}.OverdueDays(tt.now))
		})
	}
}

func TestOverdueCutoffAgreesWithOverdueDays(t *testing.T) {
	due := time.Date(2026, 3, 16, 23, 59, 59, 0, time.UTC)
	for _, after := range []time.Duration{time.Second, 23 * time.Hour, 24 * time.Hour, 49 * time.Hour} {
		now := due.Add(after)
		listed := !due.After(domain.LoanFilter{AsOf: now}.OverdueCutoff())
		assert.Equal(t, domain.OverdueDays(due, now) > 0, listed, after.String())
	}
}
