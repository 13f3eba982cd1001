package model

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// DecodeState builds a TripState from a Home Assistant style state object
// ({"entity_id", "state", "attributes"}).
func DecodeState(raw map[string]any) TripState {
	attrs, _ := raw["attributes"].(map[string]any)
	return TripState{
		EntityID:   text(raw["entity_id"]),
		Value:      text(raw["state"]),
		Attributes: DecodeAttributes(attrs),
	}
}

// DecodeAttributes coerces a loosely typed attribute bag. It never fails.
func DecodeAttributes(raw map[string]any) Attributes {
	var a Attributes
	if raw == nil {
		return a
	}

	a.Destination = text(raw["destination"])
	a.Status = text(raw["status"])
	a.StartDate = text(raw["start_date"])
	a.EndDate = text(raw["end_date"])
	a.DaysUntilStart = number(raw["days_until_start"])
	a.TotalCost = number(raw["total_cost"])

	if list, ok := raw["tags"].([]any); ok {
		for _, v := range list {
			if s := text(v); s != "" {
				a.Tags = append(a.Tags, s)
			}
		}
	}

	if counts, ok := raw["counts"].(map[string]any); ok {
		a.Counts = make(map[string]string, len(counts))
		for k, v := range counts {
			a.Counts[k] = text(v)
		}
	}

	a.TimelineEvents, _ = decodeEvents(raw["timeline_events"])
	a.Upcoming, a.HasUpcoming = decodeEvents(raw["timeline_events_upcoming"])

	if m, ok := raw["next_event"].(map[string]any); ok {
		ev := DecodeEvent(m)
		a.NextEvent = &ev
	}

	return a
}

// decodeEvents reports ok=false when v is not a list. Elements that are not
// objects are skipped.
func decodeEvents(v any) ([]Event, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	events := make([]Event, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		events = append(events, DecodeEvent(m))
	}
	return events, true
}

// DecodeEvent coerces one timeline event object.
func DecodeEvent(m map[string]any) Event {
	return Event{
		ID:           text(m["id"]),
		Dataset:      text(m["dataset"]),
		Title:        text(m["title"]),
		Subtitle:     text(m["subtitle"]),
		Location:     text(m["location"]),
		Content:      text(m["content"]),
		Status:       text(m["status"]),
		Icon:         text(m["icon"]),
		URL:          text(m["url"]),
		NotionURL:    text(m["notion_url"]),
		Confirmation: text(m["confirmation"]),
		Seat:         text(m["seat"]),
		Cost:         number(m["cost"]),
		Start:        text(m["start"]),
		End:          text(m["end"]),
		TimeZone:     text(m["time_zone"]),
		LastEdited:   text(m["last_edited_time"]),
	}
}

// IsNote reports whether the event belongs to the notes dataset.
func (e Event) IsNote() bool {
	return strings.EqualFold(e.Dataset, "notes")
}

// text converts scalars to strings; nil, maps and lists become "".
func text(v any) string {
	switch v.(type) {
	case nil, map[string]any, []any:
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// number returns nil for absent, blank, non-numeric or non-finite values.
func number(v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil
		}
		v = strings.TrimSpace(x)
	case json.Number:
		v = x.String()
	}
	n, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}
