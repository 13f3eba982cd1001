package states

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "tripcard/internal/log"
)

// Remote describes a Home Assistant style REST endpoint returning the states
// array (GET /api/states).
type Remote struct {
	URL   string
	Token string
}

// FetchResult is the outcome of one poll.
type FetchResult struct {
	Body      []byte
	FromCache bool
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher polls a Remote with conditional requests and keeps the last good
// body on disk so a restart or an outage still has data to render.
type Fetcher struct {
	remote   Remote
	client   *http.Client
	cacheDir string
}

// NewFetcher returns a Fetcher caching under cacheDir.
func NewFetcher(remote Remote, cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/states-cache"
	}
	return &Fetcher{
		remote:   remote,
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Fetch performs one poll honoring ETag and Last-Modified. Network errors
// and non-OK statuses fall back to the cached body when one exists.
func (f *Fetcher) Fetch(ctx context.Context) (FetchResult, error) {
	if f.remote.URL == "" {
		return FetchResult{}, errors.New("states remote URL is empty")
	}

	cachePath := f.cachePath()
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}
	meta, _ := f.loadMeta(cachePath)
	cached, _ := os.ReadFile(filepath.Join(cachePath, "body.json"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.remote.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	if f.remote.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.remote.Token)
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Warn("states fetch failed, using cached body", "url", redactURL(f.remote.URL), "error", err)
			return FetchResult{Body: cached, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return FetchResult{}, err
		}
		next := cacheMeta{
			URL:          f.remote.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, next, body); err != nil {
			appLog.Error("states cache save failed", err, "url", redactURL(f.remote.URL))
		}
		appLog.Debug("states fetched", "url", redactURL(f.remote.URL), "bytes", len(body))
		return FetchResult{Body: body}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		return FetchResult{Body: cached, FromCache: true}, nil

	default:
		if len(cached) > 0 {
			appLog.Warn("states fetch non-OK, using cached body", "url", redactURL(f.remote.URL), "status", resp.StatusCode)
			return FetchResult{Body: cached, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("states fetch: %s", resp.Status)
	}
}

// Pull fetches from f and replaces the store's snapshot.
func (s *Store) Pull(ctx context.Context, f *Fetcher) error {
	res, err := f.Fetch(ctx)
	if err != nil {
		return err
	}
	snap, err := Decode(bytes.NewReader(res.Body))
	if err != nil {
		return fmt.Errorf("decode remote states: %w", err)
	}
	s.Replace(snap)
	return nil
}

func (f *Fetcher) cachePath() string {
	sum := sha256.Sum256([]byte(f.remote.URL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadMeta(cachePath string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

// saveCache writes the body before the metadata so meta never points at a
// missing body.
func (f *Fetcher) saveCache(cachePath string, meta cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "states://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
