// Package config handles configuration loading and validation for bflex.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/edition"
	"github.com/colonyops/bflex/internal/core/notify"
	"github.com/colonyops/bflex/internal/core/styles"
)

// Config holds the application configuration.
type Config struct {
	Dialogs       DialogsConfig       `yaml:"dialogs"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Bridge        BridgeConfig        `yaml:"bridge"`
	API           APIConfig           `yaml:"api"`
	Database      DatabaseConfig      `yaml:"database"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	TUI           TUIConfig           `yaml:"tui"`
	DataDir       string              `yaml:"-"` // set by caller, not from config file
}

// DialogsConfig holds the dialog defaults and the promotion delay.
type DialogsConfig struct {
	dialog.Defaults `yaml:",inline"`
	TransitionDelay time.Duration `yaml:"transition_delay"`
}

// NotificationsConfig holds the notification defaults and the removal delay.
type NotificationsConfig struct {
	notify.Defaults `yaml:",inline"`
	RemovalDelay    time.Duration `yaml:"removal_delay"`
}

// BridgeConfig controls which legacy events are accepted and where they
// come from.
type BridgeConfig struct {
	// Allow lists doublestar globs matched against event names.
	Allow []string   `yaml:"allow"`
	NATS  NATSConfig `yaml:"nats"`
}

// NATSConfig enables the NATS event source when URL is set.
type NATSConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// Enabled reports whether a NATS server is configured.
func (n NATSConfig) Enabled() bool {
	return n.URL != ""
}

// APIConfig holds the REST client settings and the edition of the plugin
// behind them.
type APIConfig struct {
	BaseURL string          `yaml:"base_url"`
	Nonce   string          `yaml:"nonce"`
	Timeout time.Duration   `yaml:"timeout"`
	Edition edition.Edition `yaml:"edition"`
}

// DatabaseConfig holds SQLite connection pool settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TUIConfig holds terminal viewer settings.
type TUIConfig struct {
	Theme    string `yaml:"theme"`
	Markdown bool   `yaml:"markdown"` // render dialog messages as markdown
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Dialogs: DialogsConfig{
			Defaults:        dialog.DefaultDefaults(),
			TransitionDelay: dialog.DefaultTransitionDelay,
		},
		Notifications: NotificationsConfig{
			Defaults:     notify.DefaultDefaults(),
			RemovalDelay: notify.DefaultRemovalDelay,
		},
		Bridge: BridgeConfig{
			Allow: []string{"bflex:*"},
			NATS:  NATSConfig{Prefix: "bflex"},
		},
		API: APIConfig{
			Timeout: 30 * time.Second,
			Edition: edition.Free,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
		TUI: TUIConfig{
			Theme:    styles.DefaultTheme,
			Markdown: true,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Dialogs.Kind == "" {
		c.Dialogs.Kind = defaults.Dialogs.Kind
	}
	if c.Dialogs.Variant == "" {
		c.Dialogs.Variant = defaults.Dialogs.Variant
	}
	if c.Dialogs.Size == "" {
		c.Dialogs.Size = defaults.Dialogs.Size
	}
	if c.Notifications.Position == "" {
		c.Notifications.Position = defaults.Notifications.Position
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
	if c.Bridge.NATS.Prefix == "" {
		c.Bridge.NATS.Prefix = defaults.Bridge.NATS.Prefix
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.API.Edition == "" {
		c.API.Edition = defaults.API.Edition
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = defaults.Metrics.Addr
	}
}
