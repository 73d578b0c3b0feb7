package render

import (
	"encoding/json"
	"io"

	"timelane/internal/axis"
	"timelane/internal/layout"
)

// Document is the JSON form of a layout.
type Document struct {
	Axis        axis.Axis      `json:"axis"`
	Lanes       [][]PlacedItem `json:"lanes"`
	DayWidth    int            `json:"day_width"`
	Width       int            `json:"width"`
	Today       string         `json:"today"`
	TodayMonth  string         `json:"today_month"`
	TodayOffset int            `json:"today_offset"`
}

// PlacedItem is one item with its lane and geometry.
type PlacedItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Source       string `json:"source,omitempty"`
	Lane         int    `json:"lane"`
	OffsetDays   int    `json:"offset_days"`
	DurationDays int    `json:"duration_days"`
	Left         int    `json:"left"`
	Width        int    `json:"width"`
}

func NewDocument(l layout.Layout) Document {
	doc := Document{
		Axis:        l.Axis,
		Lanes:       make([][]PlacedItem, len(l.Lanes)),
		DayWidth:    l.DayWidth,
		Width:       l.Width,
		Today:       l.Today,
		TodayMonth:  l.TodayMonth,
		TodayOffset: l.TodayOffset,
	}
	for i, row := range l.Lanes {
		items := make([]PlacedItem, len(row))
		for j, p := range row {
			items[j] = PlacedItem{
				ID:           p.Event.ID,
				Name:         p.Event.Name,
				Start:        p.Event.StartDay().String(),
				End:          p.Event.EndDay().String(),
				Source:       p.Event.SourceID,
				Lane:         p.Lane,
				OffsetDays:   p.OffsetDays,
				DurationDays: p.DurationDays,
				Left:         p.Left,
				Width:        p.Width,
			}
		}
		doc.Lanes[i] = items
	}
	return doc
}

// JSON writes l as an indented Document.
func JSON(w io.Writer, l layout.Layout) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(l))
}
