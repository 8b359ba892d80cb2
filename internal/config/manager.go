package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/abelbrown/geocomplete/internal/logging"
)

// Manager loads the configuration and reloads it when the file changes.
type Manager struct {
	dir       string
	viper     *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
	watching  bool
}

// NewManager reads config.toml from dir. An empty dir means DefaultDir().
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = DefaultDir()
	}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("GEOCOMPLETE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m := &Manager{dir: dir, viper: v}
	m.setDefaults()
	return m
}

func (m *Manager) setDefaults() {
	d := Default()
	m.viper.SetDefault("api_key", d.APIKey)
	m.viper.SetDefault("host", d.Host)
	m.viper.SetDefault("search.mode", d.Search.Mode)
	m.viper.SetDefault("search.wait_ms", d.Search.WaitMs)
	m.viper.SetDefault("search.requests_per_second", d.Search.RequestsPerSecond)
	m.viper.SetDefault("search.burst", d.Search.Burst)
	m.viper.SetDefault("search.timeout_seconds", d.Search.TimeoutSeconds)
	m.viper.SetDefault("search.client_name", d.Search.ClientName)
	m.viper.SetDefault("params.lang", d.Params.Lang)
	m.viper.SetDefault("params.size", d.Params.Size)
	m.viper.SetDefault("params.layers", d.Params.Layers)
	m.viper.SetDefault("params.sources", d.Params.Sources)
	m.viper.SetDefault("params.boundary.country", d.Params.Boundary.Country)
	m.viper.SetDefault("params.boundary.gid", d.Params.Boundary.GID)
	m.viper.SetDefault("cache.size", d.Cache.Size)
	m.viper.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	m.viper.SetDefault("ui.placeholder", d.UI.Placeholder)
	m.viper.SetDefault("ui.value", d.UI.Value)
	m.viper.SetDefault("ui.autofocus", d.UI.AutoFocus)
	m.viper.SetDefault("ui.row_template", d.UI.RowTemplate)
	m.viper.SetDefault("ui.max_rows", d.UI.MaxRows)
	m.viper.SetDefault("history.enabled", d.History.Enabled)
	m.viper.SetDefault("history.path", d.History.Path)
	m.viper.SetDefault("history.limit", d.History.Limit)
	m.viper.SetDefault("logging.level", d.Logging.Level)
	m.viper.SetDefault("logging.dir", d.Logging.Dir)
	m.viper.SetDefault("logging.trace", d.Logging.Trace)
}

// Dir is the directory holding config, history and logs.
func (m *Manager) Dir() string { return m.dir }

// Load reads the file (if present) and environment. A missing file is not
// an error. The result is not validated; call Config.Validate.
func (m *Manager) Load() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", File(m.dir), err)
		}
	}

	cfg, err := m.unmarshal()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return cfg, nil
}

func (m *Manager) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := m.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", m.viper.ConfigFileUsed(), err)
	}
	return cfg, nil
}

// Config returns the last loaded configuration.
func (m *Manager) Config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// FileUsed returns the config file read, or "" if none was found.
func (m *Manager) FileUsed() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viper.ConfigFileUsed()
}

// OnChange registers fn to run after each successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch reloads the configuration whenever the file changes. It requires a
// config file to have been found by Load.
func (m *Manager) Watch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watching {
		return nil
	}
	if m.viper.ConfigFileUsed() == "" {
		return fmt.Errorf("watch config: no config file in %s", m.dir)
	}

	m.viper.OnConfigChange(func(e fsnotify.Event) {
		logging.Debug("config change detected", "op", e.Op.String(), "file", e.Name)

		m.mu.Lock()
		cfg, err := m.unmarshal()
		if err != nil {
			m.mu.Unlock()
			logging.Warn("config reload failed", "err", err)
			return
		}
		m.config = cfg
		callbacks := slices.Clone(m.callbacks)
		m.mu.Unlock()

		for _, cb := range callbacks {
			cb(cfg)
		}
	})
	m.viper.WatchConfig()
	m.watching = true
	return nil
}
