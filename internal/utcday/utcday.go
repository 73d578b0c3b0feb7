// Package utcday holds the calendar-day arithmetic used by the layout engine.
//
// A Day is a count of whole days since 1970-01-01 UTC. Every conversion goes
// through the UTC year/month/day fields of a time.Time, so results never
// depend on time.Local or daylight-saving transitions.
package utcday

import (
	"fmt"
	"time"
)

const (
	secondsPerDay = 24 * 60 * 60

	// Layout is the label format for a single day.
	Layout = "2006-01-02"
)

// monthsShort is fixed so that month labels never depend on the host locale.
var monthsShort = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Day is a civil calendar day in UTC, counted from the Unix epoch.
type Day int

// FromTime returns the UTC calendar day that contains t. Any time-of-day
// or zone offset carried by t is discarded.
func FromTime(t time.Time) Day {
	return FromDate(t.UTC().Date())
}

// FromDate returns the Day for the given UTC calendar fields. Out-of-range
// months and days are normalized the same way time.Date normalizes them.
func FromDate(year int, month time.Month, day int) Day {
	midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Unix time has no leap seconds, so midnight is always an exact multiple.
	return Day(midnight.Unix() / secondsPerDay)
}

// Midnight returns t normalized to 00:00:00.000 UTC of its UTC calendar day.
func Midnight(t time.Time) time.Time {
	return FromTime(t).Time()
}

// Parse reads a "YYYY-MM-DD" label.
func Parse(s string) (Day, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return 0, fmt.Errorf("utcday: invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// Time returns the day as a time.Time at UTC midnight.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// Date returns the UTC calendar fields of d.
func (d Day) Date() (year int, month time.Month, day int) {
	return d.Time().Date()
}

// Add returns the day n days after d (n may be negative).
func (d Day) Add(n int) Day {
	return d + Day(n)
}

// String formats d as "YYYY-MM-DD" with zero-padded month and day.
func (d Day) String() string {
	y, m, dd := d.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), dd)
}

// MonthLabel returns the short month label of d, e.g. "Apr 2025".
func (d Day) MonthLabel() string {
	y, m, _ := d.Date()
	return MonthLabel(y, m)
}

// MonthLabel formats a year and month as "<Mon> <Year>".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", monthsShort[month-1], year)
}

// DaysBetween returns the number of whole days from a to b. It is negative
// when b is before a. The inclusive day count of a range is
// DaysBetween(a, b)+1.
func DaysBetween(a, b Day) int {
	return int(b - a)
}

// DaysBetweenTimes is DaysBetween on the UTC calendar days of two instants.
func DaysBetweenTimes(a, b time.Time) int {
	return DaysBetween(FromTime(a), FromTime(b))
}
