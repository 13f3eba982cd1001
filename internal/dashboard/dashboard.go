// Package dashboard owns the configured cards, feeds them state snapshots and
// re-renders them on a schedule.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tripcard/internal/card"
	"tripcard/internal/config"
	appLog "tripcard/internal/log"
	"tripcard/internal/observability"
	"tripcard/internal/states"
)

// Entry is one named card.
type Entry struct {
	Name string
	Type string
	Card *card.Card
}

// Dashboard is the set of cards built from configuration.
type Dashboard struct {
	registry *card.Registry
	loc      *time.Location

	mu      sync.RWMutex
	entries []Entry
	byName  map[string]int
}

// Option customises every card the dashboard builds.
type Option = card.Option

// New builds one card per config entry. An entry with an unknown type or
// invalid options fails the whole build.
func New(reg *card.Registry, cards []config.CardConfig, loc *time.Location, opts ...Option) (*Dashboard, error) {
	if loc == nil {
		loc = time.Local
	}
	d := &Dashboard{
		registry: reg,
		loc:      loc,
		byName:   make(map[string]int, len(cards)),
	}

	cardOpts := append([]card.Option{card.WithLocation(loc)}, opts...)
	for _, cc := range cards {
		if _, dup := d.byName[cc.Name]; dup {
			return nil, fmt.Errorf("duplicate card name %q", cc.Name)
		}
		c, err := reg.New(cc.Type, cardOpts...)
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", cc.Name, err)
		}
		if err := c.SetConfig(cc.Options); err != nil {
			return nil, fmt.Errorf("card %q: %w", cc.Name, err)
		}
		d.byName[cc.Name] = len(d.entries)
		d.entries = append(d.entries, Entry{Name: cc.Name, Type: cc.Type, Card: c})
	}
	return d, nil
}

// Registry returns the card registry the dashboard was built with.
func (d *Dashboard) Registry() *card.Registry {
	return d.registry
}

// Cards returns the entries in configuration order.
func (d *Dashboard) Cards() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Entry(nil), d.entries...)
}

// Card looks up a card by name.
func (d *Dashboard) Card(name string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.byName[name]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// Apply pushes a snapshot to every card.
func (d *Dashboard) Apply(snap card.StateLookup) {
	entries := d.Cards()
	for _, e := range entries {
		e.Card.SetStates(snap)
	}
	appLog.Debug("dashboard updated", "cards", len(entries))
}

// Attach subscribes the dashboard to store updates.
func (d *Dashboard) Attach(store *states.Store) {
	store.Subscribe(func(snap states.Snapshot) { d.Apply(snap) })
}

// Refresh re-renders every card against the current clock.
func (d *Dashboard) Refresh() {
	for _, e := range d.Cards() {
		e.Card.Refresh()
	}
}

// StartRefresh schedules Refresh with a cron spec in the dashboard's zone
// until ctx is cancelled. Each job runs after the refresh on every tick.
func (d *Dashboard) StartRefresh(ctx context.Context, spec string, jobs ...func(context.Context)) error {
	c := cron.New(cron.WithLocation(d.loc))
	if _, err := c.AddFunc(spec, func() {
		tickCtx, span := observability.Tracer("tripcard.dashboard").Start(ctx, "dashboard.refresh",
			trace.WithAttributes(attribute.Int("cards", len(d.Cards()))),
		)
		defer span.End()

		appLog.Debug("scheduled refresh", "cards", len(d.Cards()))
		d.Refresh()
		for _, job := range jobs {
			job(tickCtx)
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "spec", spec, "timezone", d.loc.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}
