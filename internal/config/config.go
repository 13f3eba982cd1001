package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"tripcard/internal/card"
)

// ErrEmptyPath is returned by Load and Save when no path is given.
var ErrEmptyPath = errors.New("config path is empty")

// CardConfig is one dashboard card. Options holds the card's own keys
// (entity, mode, title, ...) inline, so the YAML reads like the dashboard
// card definition.
type CardConfig struct {
	// Name identifies the card in URLs (/cards/{name}).
	Name string `yaml:"name" json:"name"`
	// Type is a registered card type name.
	Type    string         `yaml:"type" json:"type"`
	Options map[string]any `yaml:",inline" json:"options"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web surface.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// RemoteConfig points at a Home Assistant style /api/states endpoint polled
// on the refresh schedule instead of reading StatesPath.
type RemoteConfig struct {
	URL      string `yaml:"url" json:"url"`
	Token    string `yaml:"token" json:"-"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// CaptureConfig controls PNG previews.
type CaptureConfig struct {
	Card   string `yaml:"card" json:"card"`
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// TelemetryConfig enables OTLP trace export for the HTTP surface and the
// refresh scheduler. OTEL_ENABLED=1 also enables it.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone cards render dates in (e.g. "Europe/Lisbon").
	Timezone string `yaml:"timezone" json:"timezone"`

	// StatesPath is the JSON states snapshot cards read from.
	StatesPath string `yaml:"states_path" json:"states_path"`

	// Remote, if set, replaces the file watch with polling.
	Remote *RemoteConfig `yaml:"remote,omitempty" json:"remote,omitempty"`

	// RefreshCron re-renders every card on this schedule so countdowns and
	// the past filter follow the clock.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Cards []CardConfig `yaml:"cards" json:"cards"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// DefaultConfig returns an in-memory default configuration with one overview
// card bound to the default entity.
func DefaultConfig() *Config {
	c := &Config{
		Cards: []CardConfig{
			{
				Name:    "trip",
				Type:    card.TypeName,
				Options: map[string]any{"entity": "sensor.notion_travel_next_trip", "mode": "overview"},
			},
		},
	}
	c.Normalize()
	return c
}

// Normalize fills in missing values so partially written files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.StatesPath == "" {
		c.StatesPath = "states.json"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/5 * * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Cards == nil {
		c.Cards = []CardConfig{}
	}
	for i := range c.Cards {
		cc := &c.Cards[i]
		if cc.Type == "" {
			cc.Type = card.TypeName
		}
		if cc.Name == "" {
			cc.Name = fmt.Sprintf("card-%d", i+1)
		}
		if cc.Options == nil {
			cc.Options = map[string]any{}
		}
	}
	if c.Remote != nil && c.Remote.CacheDir == "" {
		c.Remote.CacheDir = "states-cache"
	}
	if c.Capture.Output == "" {
		c.Capture.Output = "preview.png"
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1320
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 900
	}
	if c.Capture.Card == "" && len(c.Cards) > 0 {
		c.Capture.Card = c.Cards[0].Name
	}
}

// Location resolves Timezone. An empty or unknown zone yields time.Local and,
// for an unknown zone, an error describing it.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// Card returns the card config with the given name.
func (c *Config) Card(name string) (CardConfig, bool) {
	for _, cc := range c.Cards {
		if cc.Name == name {
			return cc, true
		}
	}
	return CardConfig{}, false
}

// Load loads configuration from the given YAML path.
//
// A missing file is created with DefaultConfig (0600) and that default is
// returned. An existing file is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandPaths resolves a leading ~ in file system paths.
func (c *Config) expandPaths() error {
	paths := []*string{&c.StatesPath, &c.Capture.Output}
	if c.Remote != nil {
		paths = append(paths, &c.Remote.CacheDir)
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tripcard-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
