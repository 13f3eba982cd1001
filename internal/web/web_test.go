package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tripcard/internal/card"
	"tripcard/internal/config"
	"tripcard/internal/dashboard"
	appLog "tripcard/internal/log"
	"tripcard/internal/model"
	"tripcard/internal/states"
)

func init() {
	appLog.SetOutput(io.Discard)
}

func newTestServer(t *testing.T, auth *config.BasicAuthConfig) *Server {
	t.Helper()
	cfg := &config.Config{
		Cards: []config.CardConfig{
			{Name: "trip", Type: card.TypeName, Options: map[string]any{"entity": "sensor.trip", "mode": "overview"}},
			{Name: "missing", Type: card.LegacyTypeName, Options: map[string]any{"entity": "sensor.none"}},
		},
		BasicAuth: auth,
	}
	cfg.Normalize()
	cfg.Capture.Output = filepath.Join(t.TempDir(), "preview.png")

	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	dash, err := dashboard.New(card.NewRegistry(), cfg.Cards, time.UTC, card.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	store := states.NewStore("")
	dash.Attach(store)
	store.Replace(states.Snapshot{
		"sensor.trip": {
			EntityID: "sensor.trip",
			Value:    "Lisbon 2025",
			Attributes: model.Attributes{
				Destination: "Lisbon",
				TimelineEvents: []model.Event{
					{ID: "f1", Dataset: "flights", Title: "TP 202", Start: "2025-06-05T09:30:00Z"},
				},
			},
		},
	})
	return NewServer(cfg, dash, time.UTC)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t, nil).Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCardPageAndFragment(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	page := get(t, h, "/cards/trip")
	if page.Code != http.StatusOK {
		t.Fatalf("page status %d", page.Code)
	}
	body := page.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", `data-card="trip"`, `data-ready="true"`, "Trip Console", "TP 202"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if ct := page.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type %q", ct)
	}

	frag := get(t, h, "/cards/trip/fragment")
	if strings.Contains(frag.Body.String(), "<!DOCTYPE html>") || !strings.Contains(frag.Body.String(), `class="nt-card"`) {
		t.Fatalf("fragment should be bare card markup: %s", frag.Body.String())
	}

	missing := get(t, h, "/cards/missing/fragment")
	if !strings.Contains(missing.Body.String(), "Entity sensor.none not found.") {
		t.Fatalf("missing entity panel not served: %s", missing.Body.String())
	}

	if rec := get(t, h, "/cards/nope"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown card status %d", rec.Code)
	}
}

func TestCardICS(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := get(t, h, "/cards/trip/trip.ics")
	if rec.Code != http.StatusOK {
		t.Fatalf("ics status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "UID:f1", "SUMMARY:TP 202", "DTSTART:20250605T093000Z"} {
		if !strings.Contains(body, want) {
			t.Errorf("ics missing %q", want)
		}
	}

	if rec := get(t, h, "/cards/missing/trip.ics"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing entity should 404, got %d", rec.Code)
	}
}

func TestAPICards(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	var cards []cardDTO
	rec := get(t, h, "/api/cards")
	if err := json.Unmarshal(rec.Body.Bytes(), &cards); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0] != (cardDTO{Name: "trip", Type: card.TypeName, Entity: "sensor.trip", Mode: "overview", Size: 16}) {
		t.Fatalf("unexpected card %+v", cards[0])
	}
	if cards[1].Mode != "hero" || cards[1].Size != 6 {
		t.Fatalf("unexpected card %+v", cards[1])
	}

	var types []card.Descriptor
	rec = get(t, h, "/api/card-types")
	if err := json.Unmarshal(rec.Body.Bytes(), &types); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(types) != 2 || types[0].Type != card.TypeName || types[1].Type != card.LegacyTypeName {
		t.Fatalf("unexpected types %+v", types)
	}
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	if rec := get(t, h, "/preview.png"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing preview should 404, got %d", rec.Code)
	}

	png := []byte("\x89PNG\r\n\x1a\nfake")
	if err := os.WriteFile(s.cfg.Capture.Output, png, 0o644); err != nil {
		t.Fatal(err)
	}
	rec := get(t, h, "/preview.png")
	if rec.Code != http.StatusOK || rec.Body.String() != string(png) {
		t.Fatalf("preview = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	h := newTestServer(t, &config.BasicAuthConfig{Username: "admin", Password: "secret"}).Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}

	rec := get(t, h, "/api/cards")
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected challenge, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password accepted")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid credentials rejected: %d", rec.Code)
	}
}

func TestBasicAuthNeedsBothCredentials(t *testing.T) {
	h := newTestServer(t, &config.BasicAuthConfig{Username: "admin"}).Handler()
	if rec := get(t, h, "/api/cards"); rec.Code != http.StatusOK {
		t.Fatalf("half-configured auth should be disabled, got %d", rec.Code)
	}
}
