package domain

import (
	"sort"
	"time"
)

// CurrentStreak counts consecutive calendar days with at least one entry,
// anchored at the most recent date in dates rather than today. Duplicate dates
// count once. Returns 0 for no dates.
func CurrentStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := DayOf(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	streak := 1
	for i := 1; i < len(days); i++ {
		if DaysBetween(days[i], days[i-1]) != 1 {
			break
		}
		streak++
	}
	return streak
}

// EntryDates extracts the calendar dates of non-deleted entries.
func EntryDates(entries []WeightEntry) []time.Time {
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		if e.Deleted {
			continue
		}
		out = append(out, e.Date)
	}
	return out
}
