package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	appLog "tripcard/internal/log"
)

func init() {
	appLog.SetOutput(io.Discard)
}

const testStates = `{
  "sensor.trip": {
    "state": "Lisbon 2025",
    "attributes": {
      "destination": "Lisbon",
      "days_until_start": 2,
      "timeline_events": [
        {"id": "f1", "dataset": "flights", "title": "TP 202", "start": "2025-06-05T09:30:00Z"}
      ]
    }
  }
}`

func setup(t *testing.T) (configPath string) {
	t.Helper()
	dir := t.TempDir()
	statesPath := filepath.Join(dir, "states.json")
	if err := os.WriteFile(statesPath, []byte(testStates), 0o600); err != nil {
		t.Fatal(err)
	}
	configPath = filepath.Join(dir, "tripcard.yaml")
	body := "timezone: UTC\nstates_path: " + statesPath + "\ncards:\n" +
		"  - name: trip\n    entity: sensor.trip\n    mode: overview\n" +
		"  - name: ghost\n    type: notion-travel-trip-card-v2\n    entity: sensor.ghost\n"
	if err := os.WriteFile(configPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, "--config", cfg, "render", "trip", "--at", "2025-06-03T12:00:00Z")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`class="nt-card"`, "Trip Console", "Lisbon 2025", "TP 202", "T-2 days"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	out, err = run(t, "--config", cfg, "render", "trip", "--mode", "details", "--page")
	if err != nil {
		t.Fatalf("render --page: %v", err)
	}
	if !strings.Contains(out, "<!DOCTYPE html>") || !strings.Contains(out, "Trip Details") {
		t.Fatalf("unexpected page output")
	}
}

func TestRenderCommandMissingEntity(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, "--config", cfg, "render", "ghost")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Entity sensor.ghost not found.") {
		t.Fatalf("expected not-found panel, got %s", out)
	}

	if _, err := run(t, "--config", cfg, "render", "ghost", "--ics"); err == nil {
		t.Fatalf("ics export without state should fail")
	}
	if _, err := run(t, "--config", cfg, "render", "nope"); err == nil {
		t.Fatalf("unknown card should fail")
	}
}

func TestRenderCommandICS(t *testing.T) {
	cfg := setup(t)
	out, err := run(t, "--config", cfg, "render", "trip", "--ics")
	if err != nil {
		t.Fatalf("render --ics: %v", err)
	}
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "UID:f1") {
		t.Fatalf("unexpected ics output:\n%s", out)
	}
}

func TestCardsCommand(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, "--config", cfg, "cards")
	if err != nil {
		t.Fatalf("cards: %v", err)
	}
	for _, want := range []string{"TYPE", "Notion Travel Trip Card", "Notion Travel Trip Card (Alias)", "notion-travel-trip-card-v2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("types output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "--config", cfg, "cards", "--configured")
	if err != nil {
		t.Fatalf("cards --configured: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two cards, got:\n%s", out)
	}
	want := [][]string{
		{"NAME", "TYPE", "MODE"},
		{"trip", "notion-travel-trip-card", "overview"},
		{"ghost", "notion-travel-trip-card-v2", "hero"},
	}
	for i, fields := range want {
		if got := strings.Fields(lines[i]); strings.Join(got, " ") != strings.Join(fields, " ") {
			t.Errorf("line %d = %q, want %v", i, lines[i], fields)
		}
	}
}

func TestMissingConfigIsCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.yaml")
	if _, err := run(t, "--config", path, "cards"); err != nil {
		t.Fatalf("cards: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}
