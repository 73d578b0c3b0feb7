package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"timelane/internal/utcday"
)

// ErrInvalidInterval is returned for an event whose end is before its start.
var ErrInvalidInterval = errors.New("event ends before it starts")

// ErrInvalidItem is returned when an Item cannot be converted into an Event.
var ErrInvalidItem = errors.New("invalid timeline item")

// Event is a time-bounded entry placed on the timeline. Only the UTC
// calendar day of Start and End matters for layout.
type Event struct {
	// ID is unique within one layout call; it is opaque to the layout engine.
	ID   string
	Name string

	Start time.Time
	End   time.Time

	// SourceID names the configured source the event was loaded from.
	SourceID string
}

// StartDay returns the UTC calendar day of Start.
func (e Event) StartDay() utcday.Day { return utcday.FromTime(e.Start) }

// EndDay returns the UTC calendar day of End.
func (e Event) EndDay() utcday.Day { return utcday.FromTime(e.End) }

// Validate rejects events the layout math cannot place.
func (e Event) Validate() error {
	if e.EndDay() < e.StartDay() {
		return fmt.Errorf("event %q (%s..%s): %w",
			e.ID, e.StartDay(), e.EndDay(), ErrInvalidInterval)
	}
	return nil
}

// Item is the wire and file representation of an Event, with dates as
// "YYYY-MM-DD" strings.
type Item struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Start  string `yaml:"start" json:"start"`
	End    string `yaml:"end" json:"end"`
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
}

// Event parses the item's dates and validates the resulting interval.
func (it Item) Event() (Event, error) {
	if strings.TrimSpace(it.ID) == "" {
		return Event{}, fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	start, err := utcday.Parse(strings.TrimSpace(it.Start))
	if err != nil {
		return Event{}, fmt.Errorf("%w: item %q start: %v", ErrInvalidItem, it.ID, err)
	}
	end, err := utcday.Parse(strings.TrimSpace(it.End))
	if err != nil {
		return Event{}, fmt.Errorf("%w: item %q end: %v", ErrInvalidItem, it.ID, err)
	}

	ev := Event{
		ID:       it.ID,
		Name:     it.Name,
		Start:    start.Time(),
		End:      end.Time(),
		SourceID: it.Source,
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// ItemFromEvent converts an event back into its string form.
func ItemFromEvent(e Event) Item {
	return Item{
		ID:     e.ID,
		Name:   e.Name,
		Start:  e.StartDay().String(),
		End:    e.EndDay().String(),
		Source: e.SourceID,
	}
}
