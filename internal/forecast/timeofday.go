package forecast

import "time"

const halfDay = 12 * time.Hour

// clockOf returns the time-of-day of t in the reference location.
func clockOf(t time.Time, loc *time.Location) time.Duration {
	h, m, s := t.In(loc).Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// withinClockTolerance reports whether the time-of-day of t falls within
// tolerance of the time-of-day of target, wrapping around midnight. Both are
// compared in target's location.
func withinClockTolerance(t, target time.Time, tolerance time.Duration) bool {
	diff := clockOf(t, target.Location()) - clockOf(target, target.Location())
	if diff < 0 {
		diff = -diff
	}
	if diff > halfDay {
		diff = 24*time.Hour - diff
	}
	return diff <= tolerance
}

// dayOf returns the calendar day of t in the reference location, suitable
// for grouping and ordering.
func dayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
