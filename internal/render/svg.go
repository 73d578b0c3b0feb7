// Package render draws a computed layout as SVG or as terminal text.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"timelane/internal/config"
	"timelane/internal/layout"
)

const (
	barGap     = 2
	barPadding = 6
	ellipsis   = "…"
)

// SVG writes l as a standalone SVG document: a month row, a day-of-month
// row and one row per lane. Today's header cells are filled with
// style.TodayFill. The root element carries data-ready="true" so a
// headless browser can wait for it.
func SVG(w io.Writer, l layout.Layout, style config.StyleConfig) error {
	headerHeight := style.FontSize*2 + 8
	laneTop := headerHeight * 2
	height := laneTop + max(l.LaneCount(), 1)*style.LaneHeight
	width := max(l.Width, l.DayWidth)

	var svg strings.Builder
	fmt.Fprintf(&svg, `<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg" data-ready="true">
<rect width="100%%" height="100%%" fill="%s"/>
<defs>
<style>
.month-text { font-family: %s; font-size: %dpx; font-weight: bold; fill: #111827; }
.day-text { font-family: %s; font-size: %dpx; fill: #374151; }
.item-text { font-family: %s; font-size: %dpx; fill: %s; }
</style>
</defs>
`, width, height, width, height, escapeXML(style.Background),
		escapeXML(style.FontFamily), style.FontSize,
		escapeXML(style.FontFamily), style.FontSize-2,
		escapeXML(style.FontFamily), style.FontSize, escapeXML(style.ItemText))

	// Month row.
	x := 0
	for _, g := range l.Axis.MonthGroups {
		cellWidth := g.Span * l.DayWidth
		fill := style.HeaderFill
		if g.Label == l.TodayMonth {
			fill = style.TodayFill
		}
		fmt.Fprintf(&svg, `<rect x="%d" y="0" width="%d" height="%d" fill="%s" stroke="#d1d5db"/>`+"\n",
			x, cellWidth, headerHeight, escapeXML(fill))
		fmt.Fprintf(&svg, `<text class="month-text" x="%d" y="%d">%s</text>`+"\n",
			x+barPadding, headerHeight/2+style.FontSize/2, escapeXML(fitText(g.Label, cellWidth, style.FontSize)))
		x += cellWidth
	}

	// Day row.
	for i, label := range l.Axis.DayLabels {
		fill := style.HeaderFill
		if i == l.TodayOffset {
			fill = style.TodayFill
		}
		cx := i * l.DayWidth
		fmt.Fprintf(&svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="#e5e7eb"/>`+"\n",
			cx, headerHeight, l.DayWidth, headerHeight, escapeXML(fill))
		fmt.Fprintf(&svg, `<text class="day-text" x="%d" y="%d" text-anchor="middle">%s</text>`+"\n",
			cx+l.DayWidth/2, headerHeight+headerHeight/2+style.FontSize/2-1, dayOfMonth(label))
	}

	if l.TodayOffset >= 0 {
		fmt.Fprintf(&svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" opacity="0.4"/>`+"\n",
			l.TodayOffset*l.DayWidth, laneTop, l.DayWidth, height-laneTop, escapeXML(style.TodayFill))
	}

	// Lanes.
	barHeight := max(style.LaneHeight-4*barGap, 1)
	for lane, row := range l.Lanes {
		y := laneTop + lane*style.LaneHeight + 2*barGap
		for _, p := range row {
			barWidth := max(p.Width-barGap, 1)
			fmt.Fprintf(&svg, `<g data-id="%s"><title>%s</title>`, escapeXML(p.Event.ID), escapeXML(tooltip(p)))
			fmt.Fprintf(&svg, `<rect x="%d" y="%d" width="%d" height="%d" rx="4" fill="%s"/>`,
				p.Left+barGap/2, y, barWidth, barHeight, escapeXML(style.ItemFill))
			fmt.Fprintf(&svg, `<text class="item-text" x="%d" y="%d">%s</text></g>`+"\n",
				p.Left+barPadding, y+barHeight/2+style.FontSize/2-1,
				escapeXML(fitText(p.Event.Name, barWidth-barPadding, style.FontSize)))
		}
	}

	svg.WriteString("</svg>\n")
	_, err := io.WriteString(w, svg.String())
	return err
}

// fitText truncates s to roughly fit px pixels at the given font size.
func fitText(s string, px, fontSize int) string {
	// Average glyph width is about 0.6 of the font size.
	chars := px * 10 / max(fontSize*6, 1)
	if chars <= 0 {
		return ""
	}
	return clip(s, chars)
}

// clip shortens s to at most width cells, ending in an ellipsis when cut.
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.PrintableRuneWidth(s) <= width {
		return s
	}
	return truncate.StringWithTail(s, uint(width), ellipsis)
}

func dayOfMonth(label string) string {
	if len(label) < 2 {
		return label
	}
	return strings.TrimPrefix(label[len(label)-2:], "0")
}

func tooltip(p layout.Placement) string {
	return fmt.Sprintf("%s (%s..%s)", p.Event.Name,
		p.Event.StartDay(), p.Event.EndDay())
}

// escapeXML escapes the XML special characters in s.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
