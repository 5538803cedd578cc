package domain

import "time"

// DayLayout is the wire and storage format of a calendar date.
const DayLayout = "2006-01-02"

// DayOf truncates t to its calendar date in t's own location, returned as
// midnight UTC so dates compare and subtract without zone effects.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a "2006-01-02" calendar date.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, s, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (negative if b is
// before a).
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}
