// Package timeutil provides UTC date and ISO-week helpers for the
// scheduling backend. Planned dates on curriculum entries are calendar
// dates, so all bucketing happens on UTC day boundaries.
package timeutil

import "time"

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// InISOWeek reports whether t falls in the given ISO week.
func InISOWeek(t time.Time, isoYear, isoWeek int) bool {
	y, w := t.UTC().ISOWeek()
	return y == isoYear && w == isoWeek
}

// ISOWeekOf returns the ISO year and week of the given time.
func ISOWeekOf(t time.Time) (year, week int) {
	return t.UTC().ISOWeek()
}

// DaysSince counts whole UTC days from t to now. Day boundaries, not
// 24-hour spans, so the answer is stable across the day.
func DaysSince(t time.Time) int {
	return int(StartOfDay(Now()).Sub(StartOfDay(t)).Hours() / 24)
}

// DateOnly is the wire format for planned dates (RFC 3339 full-date).
const DateOnly = "2006-01-02"

// FormatDate formats a time as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateOnly)
}
