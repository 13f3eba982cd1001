// Package format turns raw itinerary values (date strings, costs, day
// counts) into display strings.
//
// Formatter methods never fail: anything unparseable renders as a fixed
// placeholder ("—", "Any time", "Date pending").
package format

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones on hosts without a zoneinfo database

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is shown in place of an unparseable date or amount.
const Placeholder = "—"

const (
	longDateLayout  = "Mon, Jan 2"
	shortDateLayout = "Jan 2"
	clockLayout     = "3:04 PM"
)

// Offset-bearing layouts are tried first; the remaining ones are
// interpreted in the viewer location.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

var wallClockRe = regexp.MustCompile(`T(\d{2}):(\d{2})`)

// Formatter renders values for a viewer in Location. A nil Location means
// time.Local.
type Formatter struct {
	Location *time.Location
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// ParseDate parses a date or date-time string. Strings without an offset are
// read as wall-clock time in the viewer location.
func (f Formatter) ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, f.loc()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LongDate renders "Wed, May 1".
func (f Formatter) LongDate(value string) string {
	t, ok := f.ParseDate(value)
	if !ok {
		return Placeholder
	}
	return f.DayLabel(t)
}

// ShortDate renders "May 1".
func (f Formatter) ShortDate(value string) string {
	t, ok := f.ParseDate(value)
	if !ok {
		return Placeholder
	}
	return t.In(f.loc()).Format(shortDateLayout)
}

// DayLabel renders an already parsed instant as a day heading.
func (f Formatter) DayLabel(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.In(f.loc()).Format(longDateLayout)
}

// Time renders the time of day of value.
//
// Precedence: an explicit IANA timeZone, then the literal wall clock written
// in the string (any offset is ignored), then the viewer location. Values
// without a time component render as "Any time".
func (f Formatter) Time(value, timeZone string) string {
	raw := strings.TrimSpace(value)
	if raw == "" || !strings.Contains(raw, "T") {
		return "Any time"
	}
	t, ok := f.ParseDate(raw)
	if !ok {
		return "Any time"
	}

	if tz := strings.TrimSpace(timeZone); tz != "" {
		if zone, err := time.LoadLocation(tz); err == nil {
			return t.In(zone).Format(clockLayout)
		}
	}

	if m := wallClockRe.FindStringSubmatch(raw); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return time.Date(2000, time.January, 1, hh, mm, 0, 0, time.UTC).Format(clockLayout)
	}

	return t.In(f.loc()).Format(clockLayout)
}

// Money renders a USD amount with grouping and two fraction digits.
func Money(value *float64) string {
	if value == nil || !IsFinite(*value) {
		return Placeholder
	}
	n := *value
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	p := message.NewPrinter(language.AmericanEnglish)
	return sign + "$" + p.Sprintf("%.2f", n)
}

// Countdown renders the number of days until a trip starts.
func Countdown(days *float64) string {
	if days == nil || !IsFinite(*days) {
		return "Date pending"
	}
	n := *days
	switch {
	case n < 0:
		return "In progress"
	case n == 0:
		return "Today"
	case n == 1:
		return "T-1 day"
	default:
		return "T-" + strconv.FormatFloat(n, 'f', -1, 64) + " days"
	}
}

// IsFinite reports whether n is neither NaN nor infinite.
func IsFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}
