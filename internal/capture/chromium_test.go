package capture

import (
	"context"
	"testing"
	"time"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/cards/trip", OutputPath: "out.png"}
	if err := o.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeout {
		t.Fatalf("defaults not applied: %+v", o)
	}

	custom := Options{URL: "u", OutputPath: "p", Width: 800, Height: 600, Timeout: time.Second}
	if err := custom.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if custom.Width != 800 || custom.Height != 600 || custom.Timeout != time.Second {
		t.Fatalf("explicit values overwritten: %+v", custom)
	}
}

func TestCardPNGValidatesBeforeLaunching(t *testing.T) {
	if err := CardPNG(context.Background(), Options{OutputPath: "x.png"}); err == nil {
		t.Fatalf("missing URL should fail")
	}
	if err := CardPNG(context.Background(), Options{URL: "http://example.invalid"}); err == nil {
		t.Fatalf("missing output path should fail")
	}
}

func TestTasks(t *testing.T) {
	var buf []byte
	tasks := Tasks(Options{URL: "http://x", Width: 10, Height: 10}, &buf)
	if len(tasks) != 5 {
		t.Fatalf("expected 5 actions, got %d", len(tasks))
	}
}
