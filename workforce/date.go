package workforce

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day value (time entries and leave ranges are day-granular)
// =============================================================================

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// Date is a calendar day. The zero value is the zero time's day.
type Date struct {
	Time time.Time
}

// NewDate returns the date for year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool  { return d.Time.Equal(other.Time) }
func (d Date) AddDays(n int) Date     { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) Year() int              { return d.Time.Year() }
func (d Date) Month() time.Month      { return d.Time.Month() }
func (d Date) Day() int               { return d.Time.Day() }
func (d Date) IsZero() bool           { return d.Time.IsZero() }
func (d Date) String() string         { return d.Time.Format(DateLayout) }

// InMonth reports whether d falls in the given month of year.
func (d Date) InMonth(month time.Month, year int) bool {
	return d.Year() == year && d.Month() == month
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysInclusive counts the calendar days in [from, to], both ends included.
// Returns 0 when to is before from.
func DaysInclusive(from, to Date) int {
	if to.Before(from) {
		return 0
	}
	// Dates are UTC midnights so the difference is an exact multiple of 24h.
	return int(to.Time.Sub(from.Time).Hours()/24) + 1
}

// StartOfMonth returns the first day of month in year.
func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

// EndOfMonth returns the last day of month in year.
func EndOfMonth(year int, month time.Month) Date {
	return Date{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

// ValidMonth reports whether month is in 1..12.
func ValidMonth(month time.Month) bool {
	return month >= time.January && month <= time.December
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock supplies wall-clock time. Engines derive "today" from it.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)
