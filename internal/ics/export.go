// Package ics exports a trip's itinerary as an iCalendar feed.
package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"tripcard/internal/format"
	appLog "tripcard/internal/log"
	"tripcard/internal/model"
	"tripcard/internal/render"
)

const productID = "-//tripcard//Trip Itinerary//EN"

// uidNamespace seeds deterministic UIDs for events without an id, so a
// re-export keeps calendar clients from duplicating entries.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://tripcard.invalid/events"))

// Exporter turns itinerary events into VEVENTs.
type Exporter struct {
	Format format.Formatter
	// Stamp is written as DTSTAMP; zero means time.Now.
	Stamp time.Time
}

// Calendar builds a VCALENDAR for the trip. Notes and events with neither a
// parseable start nor end are skipped. Date-only values become all-day
// events whose end date is inclusive.
func (x Exporter) Calendar(name string, state model.TripState) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(name)
	cal.SetXWRCalName(name)
	if loc := x.Format.Location; loc != nil {
		cal.SetXWRTimezone(loc.String())
	}

	stamp := x.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	var added, skipped int
	for _, ev := range state.Attributes.TimelineEvents {
		if ev.IsNote() {
			continue
		}
		if !x.addEvent(cal, ev, stamp) {
			skipped++
			continue
		}
		added++
	}
	appLog.Debug("ics export built", "calendar", name, "events", added, "skipped", skipped)
	return cal
}

// Export serializes Calendar.
func (x Exporter) Export(name string, state model.TripState) string {
	return x.Calendar(name, state).Serialize()
}

func (x Exporter) addEvent(cal *ical.Calendar, ev model.Event, stamp time.Time) bool {
	startRaw, endRaw := ev.Start, ev.End
	if _, ok := x.Format.ParseDate(startRaw); !ok {
		startRaw, endRaw = endRaw, ""
	}
	start, ok := x.Format.ParseDate(startRaw)
	if !ok {
		return false
	}
	end, hasEnd := x.Format.ParseDate(endRaw)

	vev := cal.AddEvent(EventUID(ev))
	vev.SetDtStampTime(stamp)

	if isDateOnly(startRaw) {
		vev.SetAllDayStartAt(start)
		last := start
		if hasEnd && isDateOnly(endRaw) && end.After(start) {
			last = end
		}
		vev.SetAllDayEndAt(last.AddDate(0, 0, 1))
	} else {
		vev.SetStartAt(start)
		if hasEnd && end.After(start) {
			vev.SetEndAt(end)
		}
	}

	vev.SetSummary(firstNonEmpty(ev.Title, "Untitled"))
	vev.AddProperty(ical.ComponentPropertyCategories, render.DatasetLabel(ev.Dataset))
	if ev.Location != "" {
		vev.SetLocation(ev.Location)
	}
	if desc := description(ev); desc != "" {
		vev.SetDescription(desc)
	}
	if u := firstNonEmpty(strings.TrimSpace(ev.URL), strings.TrimSpace(ev.NotionURL)); u != "" {
		vev.SetURL(u)
	}
	return true
}

// EventUID is the event id when present, otherwise a name-based UUID over
// dataset, title and start.
func EventUID(ev model.Event) string {
	if id := strings.TrimSpace(ev.ID); id != "" {
		return id
	}
	key := ev.Dataset + "\x00" + ev.Title + "\x00" + ev.Start
	return uuid.NewSHA1(uidNamespace, []byte(key)).String()
}

func description(ev model.Event) string {
	var lines []string
	for _, s := range []string{ev.Subtitle, strings.TrimSpace(ev.Content)} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	if c := strings.TrimSpace(ev.Confirmation); c != "" {
		lines = append(lines, "Confirmation: "+c)
	}
	if ev.Dataset == "flights" {
		if s := strings.TrimSpace(ev.Seat); s != "" {
			lines = append(lines, "Seat: "+s)
		}
	}
	if ev.Cost != nil && format.IsFinite(*ev.Cost) && *ev.Cost > render.CostDisplayMin {
		lines = append(lines, "Cost: "+format.Money(ev.Cost))
	}
	return strings.Join(lines, "\n")
}

// isDateOnly reports whether s carries no time of day.
func isDateOnly(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.ContainsAny(s, "T ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
