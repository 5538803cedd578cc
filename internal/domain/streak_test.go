package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"weighttogo/internal/domain"
)

func daysAgo(n ...int) []time.Time {
	out := make([]time.Time, 0, len(n))
	for _, d := range n {
		out = append(out, today.AddDate(0, 0, -d))
	}
	return out
}

func TestCurrentStreak(t *testing.T) {
	tests := []struct {
		name  string
		dates []time.Time
		want  int
	}{
		{"no entries", nil, 0},
		{"single entry", daysAgo(0), 1},
		{"three consecutive", daysAgo(0, 1, 2), 3},
		{"gap stops the count", daysAgo(0, 1, 2, 4), 3},
		{"unordered input", daysAgo(2, 0, 1), 3},
		{"anchored at last entry, not today", daysAgo(3, 4, 5, 6), 4},
		{"duplicate dates count once", daysAgo(0, 0, 1), 2},
		{"gap right after anchor", daysAgo(0, 2, 3, 4), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.CurrentStreak(tc.dates))
		})
	}
}

func TestCurrentStreak_IgnoresTimeOfDay(t *testing.T) {
	dates := []time.Time{
		time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 3, 14, 0, 1, 0, 0, time.UTC),
	}
	assert.Equal(t, 2, domain.CurrentStreak(dates))
}

func TestEntryDates_SkipsDeleted(t *testing.T) {
	entries := []domain.WeightEntry{
		{Date: today},
		{Date: today.AddDate(0, 0, -1), Deleted: true},
	}
	assert.Len(t, domain.EntryDates(entries), 1)
}
