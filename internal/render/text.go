package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/padding"

	"timelane/internal/layout"
)

// DefaultDayColumns is the number of terminal cells per day.
const DefaultDayColumns = 3

// TextOptions tune Text.
type TextOptions struct {
	// DayColumns is the width of one day in cells; DefaultDayColumns if <= 0.
	DayColumns int
}

// Text writes l for a terminal: a month header, a day-of-month ruler, one
// line per lane and a marker under today's column. Colors are only emitted
// when w is a color-capable terminal.
func Text(w io.Writer, l layout.Layout, opts TextOptions) error {
	cols := opts.DayColumns
	if cols <= 0 {
		cols = DefaultDayColumns
	}

	r := lipgloss.NewRenderer(w)
	monthStyle := r.NewStyle().Bold(true)
	todayStyle := r.NewStyle().Reverse(true)
	barStyle := r.NewStyle().Foreground(lipgloss.Color("12"))

	var b strings.Builder

	for _, g := range l.Axis.MonthGroups {
		cell := g.Span * cols
		label := fit(g.Label, cell-1) + " "
		if g.Label == l.TodayMonth {
			b.WriteString(todayStyle.Render(label))
		} else {
			b.WriteString(monthStyle.Render(label))
		}
	}
	b.WriteByte('\n')

	for i, label := range l.Axis.DayLabels {
		cell := fit(fmt.Sprintf("%*s", cols-1, dayOfMonth(label)), cols-1) + " "
		if i == l.TodayOffset {
			b.WriteString(todayStyle.Render(cell))
		} else {
			b.WriteString(cell)
		}
	}
	b.WriteByte('\n')

	for _, row := range l.Lanes {
		cursor := 0
		for _, p := range row {
			start := p.OffsetDays * cols
			b.WriteString(strings.Repeat(" ", start-cursor))
			b.WriteString(barStyle.Render(bar(p.Event.Name, p.DurationDays*cols)))
			cursor = start + p.DurationDays*cols
		}
		b.WriteByte('\n')
	}

	if l.TodayOffset >= 0 {
		b.WriteString(strings.Repeat(" ", l.TodayOffset*cols))
		b.WriteString("^ today " + l.Today)
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// bar draws a bracketed bar exactly width cells wide with name inside.
func bar(name string, width int) string {
	if width < 2 {
		return strings.Repeat("=", width)
	}
	inner := clip(name, width-2)
	fill := strings.Repeat("-", width-2-lipgloss.Width(inner))
	return "[" + inner + fill + "]"
}

// fit truncates s to width cells and pads it to exactly width.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return padding.String(clip(s, width), uint(width))
}
