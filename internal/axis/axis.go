// Package axis builds the day and month header that serves as the
// timeline's coordinate system.
package axis

import (
	"errors"
	"fmt"
	"time"

	"timelane/internal/utcday"
)

// MinFinalMonthSpan is the width, in days, the last month group is padded to
// so a trailing partial month keeps a stable minimum width.
const MinFinalMonthSpan = 7

// ErrInvalidRange is returned when the range end is before its start.
var ErrInvalidRange = errors.New("axis range ends before it starts")

// MonthGroup is a contiguous run of days sharing a UTC year and month.
type MonthGroup struct {
	Label string `json:"label"`
	Span  int    `json:"span"`
}

// Axis is the day-resolution header of a timeline. MonthGroups partition
// DayLabels in order, and the spans sum to TotalDays.
type Axis struct {
	Start       utcday.Day   `json:"-"`
	DayLabels   []string     `json:"day_labels"`
	MonthGroups []MonthGroup `json:"month_groups"`
	TotalDays   int          `json:"total_days"`
	// RealDays counts the days inside the requested range, before padding.
	RealDays int `json:"real_days"`
}

// Build returns the axis covering minDate..maxDate inclusive. Both bounds
// are reduced to their UTC calendar day first, so the result only depends
// on the UTC instants given.
func Build(minDate, maxDate time.Time) (Axis, error) {
	return BuildDays(utcday.FromTime(minDate), utcday.FromTime(maxDate))
}

// BuildDays is Build for bounds already expressed as days.
func BuildDays(start, end utcday.Day) (Axis, error) {
	if end < start {
		return Axis{}, fmt.Errorf("axis %s..%s: %w", start, end, ErrInvalidRange)
	}

	realDays := utcday.DaysBetween(start, end) + 1
	ax := Axis{
		Start:     start,
		DayLabels: make([]string, 0, max(realDays, MinFinalMonthSpan)),
		RealDays:  realDays,
	}

	cur := start
	var (
		curYear  int
		curMonth time.Month
		curLabel string
		curSpan  int
	)
	for i := 0; i < realDays; i++ {
		ax.DayLabels = append(ax.DayLabels, cur.String())

		y, m, _ := cur.Date()
		switch {
		case curSpan == 0:
			curYear, curMonth, curLabel, curSpan = y, m, utcday.MonthLabel(y, m), 1
		case y == curYear && m == curMonth:
			curSpan++
		default:
			ax.MonthGroups = append(ax.MonthGroups, MonthGroup{Label: curLabel, Span: curSpan})
			curYear, curMonth, curLabel, curSpan = y, m, utcday.MonthLabel(y, m), 1
		}
		cur = cur.Add(1)
	}

	// Only the last group is padded, with the days that follow the range.
	for ; curSpan < MinFinalMonthSpan; curSpan++ {
		ax.DayLabels = append(ax.DayLabels, cur.String())
		cur = cur.Add(1)
	}
	ax.MonthGroups = append(ax.MonthGroups, MonthGroup{Label: curLabel, Span: curSpan})
	ax.TotalDays = len(ax.DayLabels)

	return ax, nil
}

// End returns the last day on the axis, padding included.
func (a Axis) End() utcday.Day {
	return a.Start.Add(a.TotalDays - 1)
}

// Offset returns how many days d lies after the axis start.
func (a Axis) Offset(d utcday.Day) int {
	return utcday.DaysBetween(a.Start, d)
}

// Contains reports whether d is one of the axis days.
func (a Axis) Contains(d utcday.Day) bool {
	off := a.Offset(d)
	return off >= 0 && off < a.TotalDays
}
