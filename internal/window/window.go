// Package window splits a date range into fixed-size fare query windows.
package window

import "time"

// Size is the number of days covered by one fare query.
const Size = 30

// day truncates t to its calendar date in UTC, keeping the wall-clock date.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Starts returns the window start dates for [start, end]: start, start+Size,
// ... for as long as the date does not exceed end. A range shorter than one
// window yields a single start. Returns nil if start is after end.
func Starts(start, end time.Time) []time.Time {
	start, end = day(start), day(end)
	var starts []time.Time
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, Size) {
		starts = append(starts, cur)
	}
	return starts
}

// Count returns the number of windows Starts produces for [start, end].
func Count(start, end time.Time) int {
	return len(Starts(start, end))
}
