// Package config loads geocomplete settings from ~/.geocomplete/config.toml
// and GEOCOMPLETE_* environment variables.
package config

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/ratelimit"
)

// Config is the persistent application configuration.
type Config struct {
	APIKey  string        `mapstructure:"api_key" toml:"api_key"`
	Host    string        `mapstructure:"host" toml:"host"`
	Search  SearchConfig  `mapstructure:"search" toml:"search"`
	Params  ParamsConfig  `mapstructure:"params" toml:"params"`
	Cache   CacheConfig   `mapstructure:"cache" toml:"cache"`
	UI      UIConfig      `mapstructure:"ui" toml:"ui"`
	History HistoryConfig `mapstructure:"history" toml:"history"`
	Logging LoggingConfig `mapstructure:"logging" toml:"logging"`
}

// SearchConfig controls request scheduling and the HTTP client.
type SearchConfig struct {
	Mode              string  `mapstructure:"mode" toml:"mode" comment:"throttle or debounce"`
	WaitMs            int     `mapstructure:"wait_ms" toml:"wait_ms" comment:"0 uses the mode default (200 throttle, 300 debounce)"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" toml:"burst"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	ClientName        string  `mapstructure:"client_name" toml:"client_name"`
}

// ParamsConfig mirrors geocode.Params.
type ParamsConfig struct {
	Lang     string         `mapstructure:"lang" toml:"lang,omitempty"`
	Size     int            `mapstructure:"size" toml:"size,omitempty"`
	Layers   []string       `mapstructure:"layers" toml:"layers,omitempty"`
	Sources  []string       `mapstructure:"sources" toml:"sources,omitempty"`
	Boundary BoundaryConfig `mapstructure:"boundary" toml:"boundary,omitempty"`
	Focus    *PointConfig   `mapstructure:"focus" toml:"focus,omitempty"`
}

type BoundaryConfig struct {
	Country string        `mapstructure:"country" toml:"country,omitempty"`
	GID     string        `mapstructure:"gid" toml:"gid,omitempty"`
	Circle  *CircleConfig `mapstructure:"circle" toml:"circle,omitempty"`
	Rect    *RectConfig   `mapstructure:"rect" toml:"rect,omitempty"`
}

type PointConfig struct {
	Lat float64 `mapstructure:"lat" toml:"lat"`
	Lon float64 `mapstructure:"lon" toml:"lon"`
}

type CircleConfig struct {
	Lat    float64 `mapstructure:"lat" toml:"lat"`
	Lon    float64 `mapstructure:"lon" toml:"lon"`
	Radius float64 `mapstructure:"radius" toml:"radius"`
}

type RectConfig struct {
	MinLat float64 `mapstructure:"min_lat" toml:"min_lat"`
	MaxLat float64 `mapstructure:"max_lat" toml:"max_lat"`
	MinLon float64 `mapstructure:"min_lon" toml:"min_lon"`
	MaxLon float64 `mapstructure:"max_lon" toml:"max_lon"`
}

// CacheConfig enables the response LRU. Size 0 disables it.
type CacheConfig struct {
	Size       int `mapstructure:"size" toml:"size"`
	TTLSeconds int `mapstructure:"ttl_seconds" toml:"ttl_seconds"`
}

type UIConfig struct {
	Placeholder string `mapstructure:"placeholder" toml:"placeholder"`
	Value       string `mapstructure:"value" toml:"value,omitempty"`
	AutoFocus   bool   `mapstructure:"autofocus" toml:"autofocus"`
	RowTemplate string `mapstructure:"row_template" toml:"row_template,omitempty" comment:"Go text/template; fields: .Feature .Index .Active .Term"`
	MaxRows     int    `mapstructure:"max_rows" toml:"max_rows"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path" toml:"path,omitempty"`
	Limit   int    `mapstructure:"limit" toml:"limit"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" toml:"level"`
	Dir   string `mapstructure:"dir" toml:"dir,omitempty"`
	// Trace records every TUI message in the event log.
	Trace bool `mapstructure:"trace" toml:"trace"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Host: geocode.DefaultHost,
		Search: SearchConfig{
			Mode:              "throttle",
			RequestsPerSecond: 10,
			Burst:             5,
			TimeoutSeconds:    10,
			ClientName:        geocode.DefaultClientName,
		},
		Params: ParamsConfig{Size: 10},
		Cache:  CacheConfig{Size: 0, TTLSeconds: 300},
		UI: UIConfig{
			Placeholder: "Search for a place",
			AutoFocus:   true,
			MaxRows:     10,
		},
		History: HistoryConfig{Enabled: true, Limit: 8},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultDir is $GEOCOMPLETE_HOME, or ~/.geocomplete.
func DefaultDir() string {
	if dir := os.Getenv("GEOCOMPLETE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".geocomplete"
	}
	return filepath.Join(home, ".geocomplete")
}

// File returns the config file path inside dir.
func File(dir string) string { return filepath.Join(dir, "config.toml") }

// EventLogPath returns the JSONL event log path inside dir.
func EventLogPath(dir string) string { return filepath.Join(dir, "geocomplete.events.jsonl") }

// HistoryPath resolves the selection database path.
func (c *Config) HistoryPath(dir string) string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(dir, "history.db")
}

// LogDir resolves the log directory.
func (c *Config) LogDir(dir string) string {
	if c.Logging.Dir != "" {
		return c.Logging.Dir
	}
	return filepath.Join(dir, "logs")
}

// Mode parses Search.Mode.
func (c *Config) Mode() (ratelimit.Mode, error) {
	return ratelimit.ParseMode(c.Search.Mode)
}

// Wait returns the configured wait, or zero for the mode default.
func (c *Config) Wait() time.Duration {
	return time.Duration(c.Search.WaitMs) * time.Millisecond
}

// GeocodeParams converts Params.
func (c *Config) GeocodeParams() geocode.Params {
	p := geocode.Params{
		Lang:    c.Params.Lang,
		Size:    c.Params.Size,
		Layers:  append([]string(nil), c.Params.Layers...),
		Sources: append([]string(nil), c.Params.Sources...),
		Boundary: geocode.Boundary{
			Country: c.Params.Boundary.Country,
			GID:     c.Params.Boundary.GID,
		},
	}
	if ci := c.Params.Boundary.Circle; ci != nil {
		p.Boundary.Circle = &geocode.Circle{Lat: ci.Lat, Lon: ci.Lon, Radius: ci.Radius}
	}
	if r := c.Params.Boundary.Rect; r != nil {
		p.Boundary.Rect = &geocode.Rect{MinLat: r.MinLat, MaxLat: r.MaxLat, MinLon: r.MinLon, MaxLon: r.MaxLon}
	}
	if f := c.Params.Focus; f != nil {
		p.Focus = &geocode.LatLon{Lat: f.Lat, Lon: f.Lon}
	}
	return p
}

// ClientOptions builds the HTTP client settings for geocode.NewClient.
func (c *Config) ClientOptions() []geocode.Option {
	timeout := time.Duration(c.Search.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if c.Search.RequestsPerSecond > 0 {
		limit = rate.Limit(c.Search.RequestsPerSecond)
	}
	burst := c.Search.Burst
	if burst <= 0 {
		burst = 1
	}
	return []geocode.Option{
		geocode.WithHTTPClient(&http.Client{Timeout: timeout}),
		geocode.WithRateLimit(rate.NewLimiter(limit, burst)),
		geocode.WithClientName(c.Search.ClientName),
	}
}

// EngineOptions assembles autocomplete options. Callbacks, Clock and Events
// are left for the caller.
func (c *Config) EngineOptions() (autocomplete.Options, error) {
	mode, err := c.Mode()
	if err != nil {
		return autocomplete.Options{}, &geocode.ConfigError{Field: "search.mode", Reason: err.Error()}
	}
	return autocomplete.Options{
		APIKey:        c.APIKey,
		Params:        c.GeocodeParams(),
		Host:          c.Host,
		Mode:          mode,
		Wait:          c.Wait(),
		Value:         c.UI.Value,
		AutoFocus:     c.UI.AutoFocus,
		CacheSize:     c.Cache.Size,
		CacheTTL:      time.Duration(c.Cache.TTLSeconds) * time.Second,
		ClientOptions: c.ClientOptions(),
	}, nil
}

// Validate checks every field and returns a *geocode.ConfigError for the
// first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &geocode.ConfigError{Field: "api_key", Reason: "required (set api_key or GEOCOMPLETE_API_KEY)"}
	}
	if _, err := c.Mode(); err != nil {
		return &geocode.ConfigError{Field: "search.mode", Reason: err.Error()}
	}
	if c.Search.WaitMs < 0 {
		return &geocode.ConfigError{Field: "search.wait_ms", Reason: "must not be negative"}
	}
	if c.Search.RequestsPerSecond < 0 {
		return &geocode.ConfigError{Field: "search.requests_per_second", Reason: "must not be negative"}
	}
	if c.Cache.Size < 0 {
		return &geocode.ConfigError{Field: "cache.size", Reason: "must not be negative"}
	}
	if err := c.GeocodeParams().Validate(); err != nil {
		return err
	}
	if c.UI.RowTemplate != "" {
		if _, err := template.New("row").Parse(c.UI.RowTemplate); err != nil {
			return &geocode.ConfigError{Field: "ui.row_template", Reason: err.Error()}
		}
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if k := cp.APIKey; k != "" {
		keep := 4
		if len(k) <= keep {
			keep = 0
		}
		cp.APIKey = k[:keep] + strings.Repeat("*", len(k)-keep)
	}
	return &cp
}

func (c *Config) String() string {
	return fmt.Sprintf("geocomplete config (host=%s mode=%s)", c.Host, c.Search.Mode)
}
