// Package render composes the card views (hero, timeline, details, overview)
// into HTML.
//
// Templates are executed with html/template, so every interpolated value is
// escaped for its context and unsafe link schemes are neutralised.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"sort"
	"strings"

	"tripcard/internal/format"
	"tripcard/internal/itinerary"
	"tripcard/internal/model"
)

// CostDisplayMin is the smallest amount worth showing; costs at or below it
// are hidden.
const CostDisplayMin = 0.01

const (
	defaultIcon    = "mdi:calendar-star"
	offlineName    = "Notion Travel Offline"
	fallbackTitle  = "Notion Travel"
	referenceLabel = "Confirmation"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets/card.css
var stylesheet string

var views = template.Must(template.New("views").ParseFS(templateFS, "templates/*.tmpl"))

var datasetLabels = map[string]string{
	"flights":        "Flight",
	"lodging":        "Stay",
	"transportation": "Transit",
	"activities":     "Activity",
	"dining":         "Dining",
	"notes":          "Note",
}

var defaultTitles = map[model.Mode]string{
	model.ModeOverview: "Trip Console",
	model.ModeTimeline: "Itinerary Timeline",
	model.ModeDetails:  "Trip Details",
	model.ModeHero:     "Next Trip",
}

// Renderer builds view markup. It holds no state between calls.
type Renderer struct {
	Engine itinerary.Engine
}

// DatasetLabel maps a dataset key to its display label, falling back to the
// key itself and then to "Event".
func DatasetLabel(dataset string) string {
	if l, ok := datasetLabels[dataset]; ok {
		return l
	}
	if dataset != "" {
		return dataset
	}
	return "Event"
}

// Title returns the card heading for cfg.
func Title(cfg model.RenderConfig) string {
	if cfg.Title != "" {
		return cfg.Title
	}
	if t, ok := defaultTitles[cfg.Mode]; ok {
		return t
	}
	return defaultTitles[model.ModeHero]
}

// Stylesheet returns the CSS used by Page.
func Stylesheet() string {
	return stylesheet
}

// Body renders the view selected by cfg.Mode.
func (r Renderer) Body(state model.TripState, cfg model.RenderConfig) (string, error) {
	switch cfg.Mode {
	case model.ModeOverview:
		return r.Overview(state, cfg)
	case model.ModeTimeline:
		return r.Timeline(state.Attributes, cfg)
	case model.ModeDetails:
		return r.Details(state.Attributes)
	default:
		return r.Hero(state)
	}
}

// Card renders the full card for a state: heading plus the body for the
// configured mode.
func (r Renderer) Card(state model.TripState, cfg model.RenderConfig) (string, error) {
	body, err := r.Body(state, cfg)
	if err != nil {
		return "", err
	}
	return execute("card", shellView{Title: Title(cfg), Body: template.HTML(body)})
}

// NotFound renders the panel shown when the configured entity is missing.
func NotFound(entity string) string {
	out, err := execute("not_found", shellView{Title: fallbackTitle, Message: entity})
	if err != nil {
		return ""
	}
	return out
}

// Failure renders the panel shown when rendering fails.
func Failure(message string) string {
	out, err := execute("failure", shellView{Title: fallbackTitle, Message: message})
	if err != nil {
		return ""
	}
	return out
}

// Page wraps card markup in a standalone HTML document with the stylesheet.
// The root carries data-ready="true" for screenshot capture.
func Page(name, card string) (string, error) {
	return execute("page", pageView{
		Name: name,
		CSS:  template.CSS(stylesheet),
		Card: template.HTML(card),
	})
}

// Hero renders the compact trip summary.
func (r Renderer) Hero(state model.TripState) (string, error) {
	return execute("hero", r.heroView(state))
}

// Timeline renders the day-grouped event list.
func (r Renderer) Timeline(attrs model.Attributes, cfg model.RenderConfig) (string, error) {
	return execute("timeline", r.timelineView(attrs, cfg))
}

// Details renders the dataset coverage panel.
func (r Renderer) Details(attrs model.Attributes) (string, error) {
	return execute("details", coverageView(attrs))
}

// Notes renders the notes panel.
func (r Renderer) Notes(attrs model.Attributes, cfg model.RenderConfig) (string, error) {
	return execute("notes", r.notesView(attrs, cfg))
}

// Overview renders hero, coverage and notes beside the timeline.
func (r Renderer) Overview(state model.TripState, cfg model.RenderConfig) (string, error) {
	return execute("overview", overviewView{
		Hero:     r.heroView(state),
		Coverage: coverageView(state.Attributes),
		Notes:    r.notesView(state.Attributes, cfg),
		Timeline: r.timelineView(state.Attributes, cfg),
	})
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type shellView struct {
	Title   string
	Body    template.HTML
	Message string
}

type pageView struct {
	Name string
	CSS  template.CSS
	Card template.HTML
}

type heroView struct {
	TripName    string
	Destination string
	Status      string
	Dates       string
	Total       int
	Upcoming    int
	Tags        string
	Spend       string
	Countdown   string
	Next        *nextView
}

type nextView struct {
	Title string
	Sub   string
}

type timelineView struct {
	Days []dayView
}

type dayView struct {
	Label  string
	Events []eventView
}

type eventView struct {
	Time       string
	IconName   string
	Glyph      string
	Title      string
	Tag        string
	Subtitle   string
	Location   string
	Notes      string
	Status     string
	Cost       string
	Seat       string
	RefLabel   string
	Reference  string
	URL        string
	DetailsURL string
}

type coverageRow struct {
	Label string
	Value string
}

type coverage struct {
	Rows []coverageRow
}

type noteView struct {
	Title      string
	Content    string
	DateLabel  string
	URL        string
	DetailsURL string
}

type notesPanel struct {
	Notes []noteView
}

type overviewView struct {
	Hero     heroView
	Coverage coverage
	Notes    notesPanel
	Timeline timelineView
}

func (r Renderer) heroView(state model.TripState) heroView {
	attrs := state.Attributes
	f := r.Engine.Format

	v := heroView{
		TripName:    state.Value,
		Destination: orDefault(attrs.Destination, "Destination TBD"),
		Status:      orDefault(attrs.Status, "Status unknown"),
		Dates:       f.LongDate(attrs.StartDate) + " → " + f.LongDate(attrs.EndDate),
		Tags:        format.Placeholder,
		Countdown:   format.Countdown(attrs.DaysUntilStart),
	}
	if state.Offline() {
		v.TripName = offlineName
	}
	if len(attrs.Tags) > 0 {
		v.Tags = strings.Join(attrs.Tags, ", ")
	}
	if significant(attrs.TotalCost) {
		v.Spend = format.Money(attrs.TotalCost)
	}

	stats := r.Engine.Stats(attrs)
	v.Total, v.Upcoming = stats.Total, stats.Upcoming

	if next := r.Engine.NextEvent(attrs); next != nil {
		when := firstNonEmpty(next.Start, next.End)
		sub := f.ShortDate(when) + " • " + f.Time(when, next.TimeZone)
		if next.Location != "" {
			sub += " • " + next.Location
		}
		v.Next = &nextView{Title: orDefault(next.Title, "Untitled"), Sub: sub}
	}
	return v
}

func (r Renderer) timelineView(attrs model.Attributes, cfg model.RenderConfig) timelineView {
	events := r.Engine.TimelineEvents(attrs, cfg)
	blocks := r.Engine.GroupByDay(events)

	v := timelineView{Days: make([]dayView, 0, len(blocks))}
	for _, b := range blocks {
		day := dayView{Label: b.Label, Events: make([]eventView, 0, len(b.Events))}
		for _, ev := range b.Events {
			day.Events = append(day.Events, r.eventView(ev))
		}
		v.Days = append(v.Days, day)
	}
	return v
}

func (r Renderer) eventView(ev model.Event) eventView {
	icon := orDefault(ev.Icon, defaultIcon)
	v := eventView{
		Time:       r.Engine.Format.Time(firstNonEmpty(ev.Start, ev.End), ev.TimeZone),
		IconName:   icon,
		Glyph:      Glyph(icon),
		Title:      orDefault(ev.Title, "Untitled"),
		Tag:        DatasetLabel(ev.Dataset),
		Subtitle:   ev.Subtitle,
		Location:   ev.Location,
		Notes:      strings.TrimSpace(ev.Content),
		Status:     orDefault(ev.Status, "Status untracked"),
		RefLabel:   referenceLabel,
		Reference:  strings.TrimSpace(ev.Confirmation),
		URL:        strings.TrimSpace(ev.URL),
		DetailsURL: strings.TrimSpace(ev.NotionURL),
	}
	if significant(ev.Cost) {
		v.Cost = format.Money(ev.Cost)
	}
	if ev.Dataset == "flights" {
		v.Seat = strings.TrimSpace(ev.Seat)
	}
	return v
}

func coverageView(attrs model.Attributes) coverage {
	keys := make([]string, 0, len(attrs.Counts))
	for k := range attrs.Counts {
		if k != "notes" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	c := coverage{Rows: make([]coverageRow, 0, len(keys))}
	for _, k := range keys {
		c.Rows = append(c.Rows, coverageRow{Label: DatasetLabel(k), Value: attrs.Counts[k]})
	}
	return c
}

func (r Renderer) notesView(attrs model.Attributes, cfg model.RenderConfig) notesPanel {
	notes := r.Engine.Notes(attrs, cfg)
	p := notesPanel{Notes: make([]noteView, 0, len(notes))}
	for _, n := range notes {
		label := "Undated"
		if t, ok := r.Engine.EventTime(n); ok {
			label = r.Engine.Format.DayLabel(t)
		}
		p.Notes = append(p.Notes, noteView{
			Title:      orDefault(n.Title, "Untitled note"),
			Content:    strings.TrimSpace(firstNonEmpty(n.Content, n.Subtitle, n.Location)),
			DateLabel:  label,
			URL:        strings.TrimSpace(n.URL),
			DetailsURL: strings.TrimSpace(n.NotionURL),
		})
	}
	return p
}

func significant(v *float64) bool {
	return v != nil && format.IsFinite(*v) && *v > CostDisplayMin
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
