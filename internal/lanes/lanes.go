// Package lanes packs events into rows so that no two events in a row
// overlap.
package lanes

import (
	"math"
	"slices"

	"timelane/internal/model"
	"timelane/internal/utcday"
)

// Assign partitions events into lanes with a greedy first-fit scan:
// events are taken in start order (stable for equal starts) and each one
// goes into the earliest-created lane whose last event ends strictly before
// it starts. An event ending on the day another starts does not fit.
//
// The input slice is left untouched. Assign(nil) returns nil.
func Assign(events []model.Event) [][]model.Event {
	if len(events) == 0 {
		return nil
	}
	sorted := sortedByStart(events)

	var (
		out [][]model.Event
		idx firstFit
	)
	for _, ev := range sorted {
		start, end := ev.StartDay(), ev.EndDay()
		if i := idx.leftmostBelow(start); i >= 0 {
			out[i] = append(out[i], ev)
			idx.set(i, end)
			continue
		}
		out = append(out, []model.Event{ev})
		idx.push(end)
	}
	return out
}

// assignLinear is the direct O(E·L) form of Assign: it scans every lane in
// creation order for each event. Its result must match Assign exactly.
func assignLinear(events []model.Event) [][]model.Event {
	if len(events) == 0 {
		return nil
	}
	sorted := sortedByStart(events)

	var out [][]model.Event
	var lastEnd []utcday.Day
	for _, ev := range sorted {
		start := ev.StartDay()
		placed := false
		for i := range out {
			if lastEnd[i] < start {
				out[i] = append(out[i], ev)
				lastEnd[i] = ev.EndDay()
				placed = true
				break
			}
		}
		if !placed {
			out = append(out, []model.Event{ev})
			lastEnd = append(lastEnd, ev.EndDay())
		}
	}
	return out
}

func sortedByStart(events []model.Event) []model.Event {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		return int(a.StartDay() - b.StartDay())
	})
	return sorted
}

// unused marks leaves that have no lane behind them yet.
const unused = utcday.Day(math.MaxInt)

// firstFit is a min segment tree over lane indices keyed by each lane's last
// end day. leftmostBelow answers "first lane, in creation order, whose last
// end is before day" in O(log L).
type firstFit struct {
	n    int          // lanes in use
	size int          // leaf capacity, a power of two
	tree []utcday.Day // 1-based heap layout; leaves at [size, 2*size)
}

func (f *firstFit) push(end utcday.Day) {
	if f.n == f.size {
		f.grow()
	}
	f.set(f.n, end)
	f.n++
}

func (f *firstFit) set(i int, end utcday.Day) {
	p := f.size + i
	f.tree[p] = end
	for p > 1 {
		p /= 2
		f.tree[p] = min(f.tree[2*p], f.tree[2*p+1])
	}
}

func (f *firstFit) leftmostBelow(day utcday.Day) int {
	if f.n == 0 || f.tree[1] >= day {
		return -1
	}
	p := 1
	for p < f.size {
		if f.tree[2*p] < day {
			p = 2 * p
		} else {
			p = 2*p + 1
		}
	}
	return p - f.size
}

func (f *firstFit) grow() {
	size := max(1, f.size*2)
	tree := make([]utcday.Day, 2*size)
	for i := range tree {
		tree[i] = unused
	}
	for i := 0; i < f.n; i++ {
		tree[size+i] = f.tree[f.size+i]
	}
	for p := size - 1; p >= 1; p-- {
		tree[p] = min(tree[2*p], tree[2*p+1])
	}
	f.size, f.tree = size, tree
}
