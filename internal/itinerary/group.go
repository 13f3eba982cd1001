package itinerary

import (
	"time"

	"tripcard/internal/model"
)

// UndatedKey is the bucket key shared by events without a parseable date.
const UndatedKey = "undated"

// DayBlock is one day heading on the timeline.
type DayBlock struct {
	Key    string
	Label  string
	Events []model.Event
}

// GroupByDay buckets events by the viewer-local calendar date of their start
// (falling back to end, then last edited time). Buckets appear in the order
// their first event appears; events keep their relative order.
func (e Engine) GroupByDay(events []model.Event) []DayBlock {
	blocks := make([]DayBlock, 0)
	index := make(map[string]int)

	for _, ev := range events {
		key, label := UndatedKey, "Unscheduled"
		if t, ok := e.EventTime(ev); ok {
			key = t.In(e.location()).Format("2006-01-02")
			label = e.Format.DayLabel(t)
		}

		i, seen := index[key]
		if !seen {
			i = len(blocks)
			index[key] = i
			blocks = append(blocks, DayBlock{Key: key, Label: label})
		}
		blocks[i].Events = append(blocks[i].Events, ev)
	}

	return blocks
}

func (e Engine) location() *time.Location {
	if e.Format.Location == nil {
		return time.Local
	}
	return e.Format.Location
}
