package axis

import (
	"errors"
	"slices"
	"testing"
	"time"

	"timelane/internal/utcday"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := utcday.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return d.Time()
}

func checkInvariants(t *testing.T, ax Axis) {
	t.Helper()
	sum := 0
	for _, g := range ax.MonthGroups {
		if g.Span <= 0 {
			t.Fatalf("group %q has span %d", g.Label, g.Span)
		}
		sum += g.Span
	}
	if sum != ax.TotalDays || ax.TotalDays != len(ax.DayLabels) {
		t.Fatalf("sum(spans)=%d TotalDays=%d len(DayLabels)=%d", sum, ax.TotalDays, len(ax.DayLabels))
	}
	if last := ax.MonthGroups[len(ax.MonthGroups)-1]; last.Span < MinFinalMonthSpan {
		t.Fatalf("last group span %d < %d", last.Span, MinFinalMonthSpan)
	}

	prev, err := utcday.Parse(ax.DayLabels[0])
	if err != nil {
		t.Fatalf("label %q: %v", ax.DayLabels[0], err)
	}
	if prev != ax.Start {
		t.Fatalf("first label %s != start %s", prev, ax.Start)
	}
	for _, l := range ax.DayLabels[1:] {
		d, err := utcday.Parse(l)
		if err != nil {
			t.Fatalf("label %q: %v", l, err)
		}
		if d != prev.Add(1) {
			t.Fatalf("label %s does not follow %s", d, prev)
		}
		prev = d
	}
}

func TestBuildMonthBoundaryScenario(t *testing.T) {
	t.Parallel()
	ax, err := Build(day(t, "2025-01-28"), day(t, "2025-02-02"))
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	checkInvariants(t, ax)

	if ax.RealDays != 6 {
		t.Fatalf("RealDays = %d, want 6", ax.RealDays)
	}
	wantGroups := []MonthGroup{{Label: "Jan 2025", Span: 4}, {Label: "Feb 2025", Span: 7}}
	if !slices.Equal(ax.MonthGroups, wantGroups) {
		t.Fatalf("MonthGroups = %v, want %v", ax.MonthGroups, wantGroups)
	}
	if ax.TotalDays != 11 {
		t.Fatalf("TotalDays = %d, want 11", ax.TotalDays)
	}
	wantLabels := []string{
		"2025-01-28", "2025-01-29", "2025-01-30", "2025-01-31",
		"2025-02-01", "2025-02-02", "2025-02-03", "2025-02-04",
		"2025-02-05", "2025-02-06", "2025-02-07",
	}
	if !slices.Equal(ax.DayLabels, wantLabels) {
		t.Fatalf("DayLabels = %v, want %v", ax.DayLabels, wantLabels)
	}
}

func TestBuildSingleDay(t *testing.T) {
	t.Parallel()
	d := day(t, "2025-06-15")
	ax, err := Build(d, d)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	checkInvariants(t, ax)
	if ax.TotalDays != 7 {
		t.Fatalf("TotalDays = %d, want 7", ax.TotalDays)
	}
	if ax.DayLabels[0] != "2025-06-15" {
		t.Fatalf("first label = %s", ax.DayLabels[0])
	}
	if len(ax.MonthGroups) != 1 || ax.MonthGroups[0] != (MonthGroup{Label: "Jun 2025", Span: 7}) {
		t.Fatalf("MonthGroups = %v", ax.MonthGroups)
	}
}

func TestBuildPaddingCrossesMonthButKeepsLabel(t *testing.T) {
	t.Parallel()
	ax, err := Build(day(t, "2024-12-30"), day(t, "2024-12-31"))
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	checkInvariants(t, ax)
	if len(ax.MonthGroups) != 1 || ax.MonthGroups[0].Label != "Dec 2024" {
		t.Fatalf("MonthGroups = %v", ax.MonthGroups)
	}
	if got := ax.DayLabels[len(ax.DayLabels)-1]; got != "2025-01-05" {
		t.Fatalf("last padded label = %s, want 2025-01-05", got)
	}
}

func TestBuildNoPaddingWhenLastMonthLongEnough(t *testing.T) {
	t.Parallel()
	ax, err := Build(day(t, "2025-01-20"), day(t, "2025-02-10"))
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	checkInvariants(t, ax)
	if ax.TotalDays != ax.RealDays || ax.TotalDays != 22 {
		t.Fatalf("TotalDays = %d RealDays = %d, want 22", ax.TotalDays, ax.RealDays)
	}
	want := []MonthGroup{{Label: "Jan 2025", Span: 12}, {Label: "Feb 2025", Span: 10}}
	if !slices.Equal(ax.MonthGroups, want) {
		t.Fatalf("MonthGroups = %v, want %v", ax.MonthGroups, want)
	}
}

func TestBuildOnlyLastGroupPadded(t *testing.T) {
	t.Parallel()
	// Jan has a 1-day run; only the final March group is padded.
	ax, err := Build(day(t, "2025-01-31"), day(t, "2025-03-02"))
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	checkInvariants(t, ax)
	want := []MonthGroup{{Label: "Jan 2025", Span: 1}, {Label: "Feb 2025", Span: 28}, {Label: "Mar 2025", Span: 7}}
	if !slices.Equal(ax.MonthGroups, want) {
		t.Fatalf("MonthGroups = %v, want %v", ax.MonthGroups, want)
	}
}

func TestBuildRejectsInvertedRange(t *testing.T) {
	t.Parallel()
	_, err := Build(day(t, "2025-02-01"), day(t, "2025-01-31"))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("Build error = %v, want ErrInvalidRange", err)
	}
}

func TestBuildIgnoresHostZone(t *testing.T) {
	t.Parallel()
	minUTC := time.Date(2025, 3, 29, 23, 30, 0, 0, time.UTC)
	maxUTC := time.Date(2025, 4, 2, 0, 15, 0, 0, time.UTC)
	want, err := Build(minUTC, maxUTC)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	zones := []string{"America/Los_Angeles", "Europe/Berlin", "Asia/Kolkata", "Pacific/Chatham"}
	for _, name := range zones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			t.Logf("zone %s unavailable: %v", name, err)
			continue
		}
		got, err := Build(minUTC.In(loc), maxUTC.In(loc))
		if err != nil {
			t.Fatalf("%s: Build error: %v", name, err)
		}
		if !slices.Equal(got.DayLabels, want.DayLabels) || !slices.Equal(got.MonthGroups, want.MonthGroups) {
			t.Fatalf("%s: axis differs: %v / %v", name, got.MonthGroups, want.MonthGroups)
		}
	}
}

func TestBuildLongRangeInvariants(t *testing.T) {
	t.Parallel()
	start := utcday.FromDate(2023, time.November, 17)
	for span := 0; span < 500; span += 13 {
		ax, err := BuildDays(start, start.Add(span))
		if err != nil {
			t.Fatalf("span %d: %v", span, err)
		}
		checkInvariants(t, ax)
		if ax.RealDays != span+1 {
			t.Fatalf("span %d: RealDays = %d", span, ax.RealDays)
		}
	}
}

func TestAxisOffsetAndContains(t *testing.T) {
	t.Parallel()
	ax, err := Build(day(t, "2025-01-28"), day(t, "2025-02-02"))
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	feb1 := utcday.FromDate(2025, time.February, 1)
	if off := ax.Offset(feb1); off != 4 {
		t.Fatalf("Offset(Feb 1) = %d, want 4", off)
	}
	if !ax.Contains(ax.End()) || ax.Contains(ax.End().Add(1)) || ax.Contains(ax.Start.Add(-1)) {
		t.Fatalf("Contains disagrees with axis bounds %s..%s", ax.Start, ax.End())
	}
}
