package states

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcherConditionalAndFallback(t *testing.T) {
	var requests int
	var sawToken bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Authorization") == "Bearer secret" {
			sawToken = true
		}
		switch {
		case r.Header.Get("If-None-Match") == `"v1"`:
			w.WriteHeader(http.StatusNotModified)
		default:
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte(arrayStates))
		}
	}))

	f := NewFetcher(Remote{URL: srv.URL + "/api/states", Token: "secret"}, t.TempDir())
	ctx := context.Background()

	first, err := f.Fetch(ctx)
	if err != nil || first.FromCache {
		t.Fatalf("first fetch: %+v, %v", first, err)
	}
	second, err := f.Fetch(ctx)
	if err != nil || !second.FromCache || string(second.Body) != arrayStates {
		t.Fatalf("second fetch should be served from cache: %+v, %v", second, err)
	}
	if requests != 2 || !sawToken {
		t.Fatalf("requests = %d, token seen = %v", requests, sawToken)
	}

	srv.Close()
	third, err := f.Fetch(ctx)
	if err != nil || !third.FromCache {
		t.Fatalf("offline fetch should fall back to cache: %+v, %v", third, err)
	}

	store := NewStore("")
	if err := store.Pull(ctx, f); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if _, ok := store.Get("sensor.trip"); !ok {
		t.Fatalf("pulled snapshot missing sensor.trip")
	}
}

func TestFetcherErrorsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := NewFetcher(Remote{URL: srv.URL}, t.TempDir())
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatalf("expected error on 401 with empty cache")
	}
	if _, err := NewFetcher(Remote{}, t.TempDir()).Fetch(context.Background()); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://ha.local:8123/api/states?token=x"); got != "https://ha.local:8123/...(redacted)" {
		t.Fatalf("redactURL = %q", got)
	}
	if got := redactURL("nonsense"); got != "states://...(redacted)" {
		t.Fatalf("redactURL = %q", got)
	}
}
