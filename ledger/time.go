package ledger

import "time"

// =============================================================================
// CALENDAR DAYS - Rate periods and reports work on days, incomes on instants
// =============================================================================

// DateLayout is the wire format of a calendar day.
const DateLayout = "2006-01-02"

// NewDate returns midnight UTC of the given day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock part, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

func StartOfYear(year int) time.Time { return NewDate(year, time.January, 1) }

// =============================================================================
// CLOCK - Injected so engines stay pure
// =============================================================================

// Clock returns the current instant.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time { return time.Now() }

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
