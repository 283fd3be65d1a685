package clock

import "time"

// Clock supplies the current time so lifecycle rules and reconciliation
// sweeps can run against a fixed instant in tests.
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock in UTC.
type Real struct{}

// Now implements Clock.
func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always reports the same instant.
type Fixed struct {
	Instant time.Time
}

// Now implements Clock.
func (f Fixed) Now() time.Time {
	return f.Instant
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether [startA, endA] intersects [startB, endB].
// Touching boundaries count as overlap, matching the store's three-clause
// window query.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return !startA.After(endB) && !endA.Before(startB)
}

// AddDays shifts t by a whole number of days, which may be negative.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}
