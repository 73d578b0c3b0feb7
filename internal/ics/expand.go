package ics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "timelane/internal/log"
	"timelane/internal/model"
	"timelane/internal/utcday"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// RangeStart / RangeEnd bound the occurrences, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero means the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a (possibly recurring) event.
type Occurrence struct {
	SourceID    string
	UID         string
	InstanceKey string
	Summary     string
	AllDay      bool
	Start       time.Time
	End         time.Time
}

// ExpandResult holds the expanded occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences expands parsed events into the occurrences that overlap
// the configured range, applying RRULE, EXDATE and RECURRENCE-ID overrides.
// Occurrences are ordered by start, then UID, so repeated expansions of the
// same feed produce the same sequence.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	for uid, baseEvents := range baseByUID {
		ov := overridesByUID[uid]
		truncated := false
		for _, ev := range baseEvents {
			occ, hitCap := expandEvent(ev, ov, cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("expand: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	sort.Slice(result.Occurrences, func(i, j int) bool {
		a, b := result.Occurrences[i], result.Occurrences[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.UID < b.UID
	})
	sort.Strings(result.TruncatedEvents)
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		ev = o
	}
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []Occurrence{makeOccurrence(ev, ev.Start, ev.End)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Start the search one duration early so occurrences that began before
	// the range but still overlap it are kept.
	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	occTimes := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(occTimes))
	for _, occStart := range occTimes {
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			out = append(out, makeOccurrence(o, o.Start, o.End))
			continue
		}
		out = append(out, makeOccurrence(ev, occStart, occStart.Add(dur)))
	}
	return out, hitCap
}

// findOverrideForStart returns the override whose RECURRENCE-ID is the
// given instance start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time) Occurrence {
	return Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: start.UTC().Format(time.RFC3339),
		Summary:     ev.Summary,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// Event converts the occurrence into a day-resolution timeline event.
// All-day ends are exclusive in ICS and become the previous day; a timed
// occurrence ending exactly at midnight does not spill into the next day.
func (o Occurrence) Event(loc *time.Location) model.Event {
	if loc == nil {
		loc = time.UTC
	}

	var start, end utcday.Day
	if o.AllDay {
		start = utcday.FromDate(o.Start.Date())
		end = utcday.FromDate(o.End.Date()).Add(-1)
	} else {
		s, e := o.Start.In(loc), o.End.In(loc)
		if e.After(s) {
			e = e.Add(-time.Nanosecond)
		}
		start = utcday.FromDate(s.Date())
		end = utcday.FromDate(e.Date())
	}
	end = max(end, start)

	return model.Event{
		ID:       fmt.Sprintf("%s/%s/%s", o.SourceID, o.UID, o.InstanceKey),
		Name:     o.Summary,
		Start:    start.Time(),
		End:      end.Time(),
		SourceID: o.SourceID,
	}
}

// Events converts occurrences into timeline events.
func Events(occs []Occurrence, loc *time.Location) []model.Event {
	out := make([]model.Event, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Event(loc))
	}
	return out
}
