package layout

import (
	"errors"
	"testing"
	"time"

	"timelane/internal/model"
	"timelane/internal/utcday"
)

func item(id, start, end string) model.Event {
	ev, err := model.Item{ID: id, Name: "item " + id, Start: start, End: end}.Event()
	if err != nil {
		panic(err)
	}
	return ev
}

func fixedNow(s string) func() time.Time {
	d, err := utcday.Parse(s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return d.Time().Add(15 * time.Hour) }
}

func TestComputeGeometry(t *testing.T) {
	t.Parallel()
	events := []model.Event{
		item("1", "2025-01-01", "2025-01-03"),
		item("2", "2025-01-02", "2025-01-05"),
		item("3", "2025-01-06", "2025-01-07"),
	}

	l, err := Compute(events, Options{DayWidth: 10, Now: fixedNow("2025-01-04")})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if l.LaneCount() != 2 {
		t.Fatalf("LaneCount = %d, want 2", l.LaneCount())
	}
	if l.Axis.TotalDays != 7 || l.Width != 70 {
		t.Fatalf("TotalDays = %d Width = %d, want 7 and 70", l.Axis.TotalDays, l.Width)
	}

	tests := []struct {
		lane, idx   int
		id          string
		left, width int
	}{
		{lane: 0, idx: 0, id: "1", left: 0, width: 30},
		{lane: 0, idx: 1, id: "3", left: 50, width: 20},
		{lane: 1, idx: 0, id: "2", left: 10, width: 40},
	}
	for _, tt := range tests {
		p := l.Lanes[tt.lane][tt.idx]
		if p.Event.ID != tt.id || p.Left != tt.left || p.Width != tt.width || p.Lane != tt.lane {
			t.Fatalf("lane %d[%d] = {id:%s lane:%d left:%d width:%d}, want {id:%s left:%d width:%d}",
				tt.lane, tt.idx, p.Event.ID, p.Lane, p.Left, p.Width, tt.id, tt.left, tt.width)
		}
	}

	if l.Today != "2025-01-04" || l.TodayMonth != "Jan 2025" || l.TodayOffset != 3 {
		t.Fatalf("today = %s/%s/%d", l.Today, l.TodayMonth, l.TodayOffset)
	}
}

func TestComputeTodayOffAxis(t *testing.T) {
	t.Parallel()
	l, err := Compute([]model.Event{item("1", "2025-01-01", "2025-01-01")}, Options{Now: fixedNow("2026-10-15")})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if l.TodayOffset != -1 {
		t.Fatalf("TodayOffset = %d, want -1", l.TodayOffset)
	}
	if l.DayWidth != DefaultDayWidth {
		t.Fatalf("DayWidth = %d, want default %d", l.DayWidth, DefaultDayWidth)
	}
}

func TestComputeErrors(t *testing.T) {
	t.Parallel()
	if _, err := Compute(nil, Options{}); !errors.Is(err, ErrNoEvents) {
		t.Fatalf("Compute(nil) error = %v, want ErrNoEvents", err)
	}

	bad := model.Event{
		ID:    "x",
		Start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err := Compute([]model.Event{item("ok", "2025-01-01", "2025-01-02"), bad}, Options{})
	if !errors.Is(err, model.ErrInvalidInterval) {
		t.Fatalf("Compute(inverted) error = %v, want ErrInvalidInterval", err)
	}
}
