// Package card adapts the renderer to a dashboard host: it accepts a loose
// option map, receives state snapshots and keeps the last rendered markup.
package card

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tripcard/internal/format"
	"tripcard/internal/itinerary"
	appLog "tripcard/internal/log"
	"tripcard/internal/model"
	"tripcard/internal/render"
)

// ErrInvalidConfig is returned by SetConfig when no options are supplied.
var ErrInvalidConfig = errors.New("invalid configuration")

const defaultSize = 6

var sizes = map[model.Mode]int{
	model.ModeHero:     6,
	model.ModeTimeline: 11,
	model.ModeDetails:  8,
	model.ModeOverview: 16,
}

// StateLookup resolves an entity id to its current state.
type StateLookup interface {
	Get(entityID string) (model.TripState, bool)
}

// Option customises a Card.
type Option func(*Card)

// WithLocation sets the viewer timezone. The default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Card) { c.renderer.Engine.Format = format.Formatter{Location: loc} }
}

// WithClock replaces the wall clock used for past/upcoming decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Card) { c.renderer.Engine.Now = now }
}

// Card is a configured instance of the trip card. The zero value is not
// usable; construct with New.
type Card struct {
	mu         sync.RWMutex
	renderer   render.Renderer
	configured bool
	cfg        model.RenderConfig
	states     StateLookup
	html       string
}

// New returns an unconfigured card.
func New(opts ...Option) *Card {
	c := &Card{renderer: render.Renderer{Engine: itinerary.Engine{}}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetConfig applies options and re-renders. A nil map is rejected and leaves
// the card unchanged.
func (c *Card) SetConfig(opts map[string]any) error {
	if opts == nil {
		return ErrInvalidConfig
	}
	cfg := model.NewRenderConfig(opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.configured = true
	c.renderLocked()
	return nil
}

// SetStates stores the latest snapshot and re-renders when configured.
func (c *Card) SetStates(states StateLookup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = states
	if c.configured {
		c.renderLocked()
	}
}

// Refresh re-renders with the current snapshot, picking up clock changes.
func (c *Card) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configured {
		c.renderLocked()
	}
}

// HTML returns the last rendered markup, or "" while unconfigured.
func (c *Card) HTML() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.html
}

// Config returns the active render configuration and whether one is set.
func (c *Card) Config() (model.RenderConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg, c.configured
}

// Size is the layout height hint for the configured mode.
func (c *Card) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return defaultSize
	}
	if n, ok := sizes[c.cfg.Mode]; ok {
		return n
	}
	return defaultSize
}

// State returns the configured entity's current state.
func (c *Card) State() (model.TripState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupLocked()
}

func (c *Card) lookupLocked() (model.TripState, bool) {
	if c.states == nil {
		return model.TripState{}, false
	}
	return c.states.Get(c.cfg.Entity)
}

func (c *Card) renderLocked() {
	state, ok := c.lookupLocked()
	if !ok {
		c.html = render.NotFound(c.cfg.Entity)
		return
	}
	c.html = c.safeRender(state)
}

func (c *Card) safeRender(state model.TripState) (out string) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			appLog.Error("card render panicked", errors.New(msg), "entity", c.cfg.Entity)
			out = render.Failure(msg)
		}
	}()

	html, err := c.renderer.Card(state, c.cfg)
	if err != nil {
		appLog.Error("card render failed", err, "entity", c.cfg.Entity)
		return render.Failure(err.Error())
	}
	return html
}
