// Package itinerary selects, orders and groups timeline events for display.
package itinerary

import (
	"slices"
	"time"

	"tripcard/internal/format"
	"tripcard/internal/model"
)

// Engine evaluates the display rules against a clock and a viewer location.
type Engine struct {
	Format format.Formatter
	// Now returns the current instant; nil means time.Now.
	Now func() time.Time
}

// Stats counts the non-note events of a trip.
type Stats struct {
	Total    int
	Upcoming int
}

func (e Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// TimelineEvents returns the events shown on the timeline, in source order.
// The result is never nil.
func (e Engine) TimelineEvents(attrs model.Attributes, cfg model.RenderConfig) []model.Event {
	source := attrs.TimelineEvents
	if cfg.UseUpcoming && attrs.HasUpcoming && len(attrs.Upcoming) > 0 {
		source = attrs.Upcoming
	}

	now := e.now()
	out := make([]model.Event, 0, len(source))
	for _, ev := range source {
		if !cfg.IncludeNotesInTimeline && ev.IsNote() {
			continue
		}
		if !cfg.ShowPast && !e.isUpcoming(ev, now) {
			continue
		}
		out = append(out, ev)
	}
	return truncate(out, cfg.MaxEvents)
}

// Notes returns note events from timeline_events, newest first.
func (e Engine) Notes(attrs model.Attributes, cfg model.RenderConfig) []model.Event {
	notes := make([]model.Event, 0)
	for _, ev := range attrs.TimelineEvents {
		if ev.IsNote() {
			notes = append(notes, ev)
		}
	}
	slices.SortStableFunc(notes, func(a, b model.Event) int {
		return compareInt64(e.sortKey(b), e.sortKey(a))
	})
	return truncate(notes, cfg.MaxNotes)
}

// Stats counts non-note events in timeline_events and how many of them
// start or end at or after now.
func (e Engine) Stats(attrs model.Attributes) Stats {
	now := e.now()
	var s Stats
	for _, ev := range attrs.TimelineEvents {
		if ev.IsNote() {
			continue
		}
		s.Total++
		if e.isUpcoming(ev, now) {
			s.Upcoming++
		}
	}
	return s
}

// NextEvent picks the earliest non-note event, preferring the upcoming list.
// Undated events sort as the epoch and therefore win over dated ones.
// attrs.NextEvent is the fallback when no candidate remains, unless it is a
// note itself.
func (e Engine) NextEvent(attrs model.Attributes) *model.Event {
	source := attrs.TimelineEvents
	if len(attrs.Upcoming) > 0 {
		source = attrs.Upcoming
	}

	candidates := make([]model.Event, 0, len(source))
	for _, ev := range source {
		if !ev.IsNote() {
			candidates = append(candidates, ev)
		}
	}

	if len(candidates) == 0 {
		if attrs.NextEvent != nil && !attrs.NextEvent.IsNote() {
			ev := *attrs.NextEvent
			return &ev
		}
		return nil
	}

	slices.SortStableFunc(candidates, func(a, b model.Event) int {
		return compareInt64(e.sortKey(a), e.sortKey(b))
	})
	first := candidates[0]
	return &first
}

// EventTime returns the first parseable of start, end and last edited time.
func (e Engine) EventTime(ev model.Event) (time.Time, bool) {
	for _, v := range []string{ev.Start, ev.End, ev.LastEdited} {
		if t, ok := e.Format.ParseDate(v); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortKey is the event time in Unix milliseconds, 0 when undated.
func (e Engine) sortKey(ev model.Event) int64 {
	t, ok := e.EventTime(ev)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

func (e Engine) isUpcoming(ev model.Event, now time.Time) bool {
	if t, ok := e.Format.ParseDate(ev.Start); ok && !t.Before(now) {
		return true
	}
	if t, ok := e.Format.ParseDate(ev.End); ok && !t.Before(now) {
		return true
	}
	return false
}

func truncate(events []model.Event, n int) []model.Event {
	if n < 0 {
		n = 0
	}
	if len(events) > n {
		return events[:n]
	}
	return events
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
