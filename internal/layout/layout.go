// Package layout combines lane assignment and the calendar axis into
// pixel geometry for a renderer.
package layout

import (
	"errors"
	"fmt"
	"time"

	"timelane/internal/axis"
	"timelane/internal/lanes"
	"timelane/internal/model"
	"timelane/internal/utcday"
)

// DefaultDayWidth is the width of one day column in pixels.
const DefaultDayWidth = 24

// ErrNoEvents is returned when there is nothing to lay out. An axis needs
// at least one event to derive its range from.
var ErrNoEvents = errors.New("no timeline items")

// Options tune Compute.
type Options struct {
	// DayWidth is the width of one day column; DefaultDayWidth if <= 0.
	DayWidth int
	// Now is used for the today marker; time.Now if nil.
	Now func() time.Time
}

// Placement is one event positioned on the axis.
type Placement struct {
	Event model.Event
	Lane  int

	OffsetDays   int // days from axis start to event start
	DurationDays int // inclusive length of the event in days

	Left  int // OffsetDays * DayWidth
	Width int // DurationDays * DayWidth
}

// Layout is everything a renderer needs for one frame.
type Layout struct {
	Axis     axis.Axis
	Lanes    [][]Placement
	DayWidth int
	// Width is TotalDays * DayWidth.
	Width int

	// Today is today's "YYYY-MM-DD" label in UTC and TodayMonth its month
	// label, used to highlight the matching header cells.
	Today      string
	TodayMonth string
	// TodayOffset is today's column, or -1 when today is off the axis.
	TodayOffset int
}

// Compute validates events, assigns them to lanes and places them on an
// axis spanning the earliest start to the latest end.
func Compute(events []model.Event, opts Options) (Layout, error) {
	if len(events) == 0 {
		return Layout{}, ErrNoEvents
	}
	if opts.DayWidth <= 0 {
		opts.DayWidth = DefaultDayWidth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var errs []error
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return Layout{}, fmt.Errorf("layout: %w", errors.Join(errs...))
	}

	first, last := events[0].StartDay(), events[0].EndDay()
	for _, ev := range events[1:] {
		first = min(first, ev.StartDay())
		last = max(last, ev.EndDay())
	}

	ax, err := axis.BuildDays(first, last)
	if err != nil {
		return Layout{}, fmt.Errorf("layout: %w", err)
	}

	assigned := lanes.Assign(events)
	out := Layout{
		Axis:     ax,
		Lanes:    make([][]Placement, len(assigned)),
		DayWidth: opts.DayWidth,
		Width:    ax.TotalDays * opts.DayWidth,
	}
	for i, lane := range assigned {
		row := make([]Placement, len(lane))
		for j, ev := range lane {
			row[j] = Place(ax, ev, opts.DayWidth)
			row[j].Lane = i
		}
		out.Lanes[i] = row
	}

	today := utcday.FromTime(opts.Now())
	out.Today = today.String()
	out.TodayMonth = today.MonthLabel()
	out.TodayOffset = -1
	if ax.Contains(today) {
		out.TodayOffset = ax.Offset(today)
	}

	return out, nil
}

// Place computes the geometry of a single event on ax.
func Place(ax axis.Axis, ev model.Event, dayWidth int) Placement {
	offset := ax.Offset(ev.StartDay())
	duration := utcday.DaysBetweenTimes(ev.Start, ev.End) + 1
	return Placement{
		Event:        ev,
		OffsetDays:   offset,
		DurationDays: duration,
		Left:         offset * dayWidth,
		Width:        duration * dayWidth,
	}
}

// LaneCount returns the number of lanes.
func (l Layout) LaneCount() int { return len(l.Lanes) }
