package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"tripcard/internal/card"
	"tripcard/internal/config"
	appLog "tripcard/internal/log"
	"tripcard/internal/model"
	"tripcard/internal/states"
)

func init() {
	appLog.SetOutput(io.Discard)
}

func testCards() []config.CardConfig {
	return []config.CardConfig{
		{Name: "hero", Type: card.TypeName, Options: map[string]any{"entity": "sensor.trip"}},
		{Name: "timeline", Type: card.LegacyTypeName, Options: map[string]any{"entity": "sensor.trip", "mode": "timeline"}},
	}
}

func TestNewBuildsCards(t *testing.T) {
	d, err := New(card.NewRegistry(), testCards(), time.UTC)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := d.Cards()
	if len(entries) != 2 || entries[0].Name != "hero" || entries[1].Name != "timeline" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if e, ok := d.Card("timeline"); !ok || e.Card.Size() != 11 {
		t.Fatalf("timeline card not configured")
	}
	if _, ok := d.Card("nope"); ok {
		t.Fatalf("unknown name should not resolve")
	}
}

func TestNewRejectsBadEntries(t *testing.T) {
	reg := card.NewRegistry()

	if _, err := New(reg, []config.CardConfig{{Name: "x", Type: "other-card", Options: map[string]any{}}}, time.UTC); err == nil {
		t.Fatalf("unknown type should fail")
	}
	_, err := New(reg, []config.CardConfig{{Name: "x", Type: card.TypeName}}, time.UTC)
	if !errors.Is(err, card.ErrInvalidConfig) {
		t.Fatalf("nil options should surface ErrInvalidConfig, got %v", err)
	}
	dup := []config.CardConfig{
		{Name: "x", Type: card.TypeName, Options: map[string]any{}},
		{Name: "x", Type: card.TypeName, Options: map[string]any{}},
	}
	if _, err := New(reg, dup, time.UTC); err == nil {
		t.Fatalf("duplicate names should fail")
	}
}

func TestAttachPushesSnapshots(t *testing.T) {
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	d, err := New(card.NewRegistry(), testCards(), time.UTC, card.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	store := states.NewStore("")
	d.Attach(store)

	hero, _ := d.Card("hero")
	if !strings.Contains(hero.Card.HTML(), "Entity sensor.trip not found.") {
		t.Fatalf("empty store should render the not-found panel")
	}

	store.Replace(states.Snapshot{
		"sensor.trip": {
			EntityID: "sensor.trip",
			Value:    "Lisbon 2025",
			Attributes: model.Attributes{
				TimelineEvents: []model.Event{{Dataset: "dining", Title: "Dinner", Start: "2025-06-04T19:00:00Z"}},
			},
		},
	})

	if !strings.Contains(hero.Card.HTML(), "Lisbon 2025") {
		t.Fatalf("hero not updated: %s", hero.Card.HTML())
	}
	tl, _ := d.Card("timeline")
	if !strings.Contains(tl.Card.HTML(), "Dinner") {
		t.Fatalf("timeline not updated")
	}

	now = now.AddDate(0, 0, 2)
	d.Refresh()
	if strings.Contains(tl.Card.HTML(), "Dinner") {
		t.Fatalf("refresh should drop past events")
	}
}

func TestStartRefreshValidatesSpec(t *testing.T) {
	d, err := New(card.NewRegistry(), testCards(), time.UTC)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.StartRefresh(ctx, "not a cron spec"); err == nil {
		t.Fatalf("invalid spec should fail")
	}
	if err := d.StartRefresh(ctx, "@every 1h"); err != nil {
		t.Fatalf("StartRefresh: %v", err)
	}
}
