package model

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Mode selects which view a card renders.
type Mode string

const (
	ModeHero     Mode = "hero"
	ModeTimeline Mode = "timeline"
	ModeDetails  Mode = "details"
	ModeOverview Mode = "overview"
)

const (
	DefaultMaxEvents = 100
	DefaultMaxNotes  = 8
)

// RenderConfig is the normalized card configuration.
type RenderConfig struct {
	Entity                 string `json:"entity" yaml:"entity"`
	Mode                   Mode   `json:"mode" yaml:"mode"`
	Title                  string `json:"title,omitempty" yaml:"title,omitempty"`
	UseUpcoming            bool   `json:"use_upcoming" yaml:"use_upcoming"`
	ShowPast               bool   `json:"show_past" yaml:"show_past"`
	IncludeNotesInTimeline bool   `json:"include_notes_in_timeline" yaml:"include_notes_in_timeline"`
	MaxEvents              int    `json:"max_events" yaml:"max_events"`
	MaxNotes               int    `json:"max_notes" yaml:"max_notes"`
}

// NewRenderConfig applies defaults to a host-provided option map:
//   - entity: DefaultEntity
//   - mode: hero (unknown modes also render as hero)
//   - use_upcoming: true unless literally false
//   - show_past, include_notes_in_timeline: false
//   - max_events / max_notes: 100 / 8, numbers only, clamped at 0
func NewRenderConfig(opts map[string]any) RenderConfig {
	cfg := RenderConfig{
		Entity:                 text(opts["entity"]),
		Mode:                   ParseMode(text(opts["mode"])),
		Title:                  text(opts["title"]),
		UseUpcoming:            true,
		ShowPast:               flag(opts["show_past"]),
		IncludeNotesInTimeline: flag(opts["include_notes_in_timeline"]),
		MaxEvents:              limit(opts["max_events"], DefaultMaxEvents),
		MaxNotes:               limit(opts["max_notes"], DefaultMaxNotes),
	}
	if cfg.Entity == "" {
		cfg.Entity = DefaultEntity
	}
	if b, ok := opts["use_upcoming"].(bool); ok && !b {
		cfg.UseUpcoming = false
	}
	return cfg
}

// ParseMode maps a mode name to a Mode, defaulting to ModeHero.
func ParseMode(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTimeline, ModeDetails, ModeOverview:
		return m
	default:
		return ModeHero
	}
}

func flag(v any) bool {
	if v == nil {
		return false
	}
	b, err := cast.ToBoolE(v)
	return err == nil && b
}

// limit accepts numeric values only; strings and other types yield def.
func limit(v any, def int) int {
	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint64:
		n = float64(x)
	case float64:
		n = x
	case float32:
		n = float64(x)
	default:
		return def
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return def
	}
	if n < 0 {
		return 0
	}
	return int(n)
}
