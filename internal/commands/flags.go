package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/colonyops/bflex/internal/api"
	"github.com/colonyops/bflex/internal/bridge"
	"github.com/colonyops/bflex/internal/core/config"
	"github.com/colonyops/bflex/internal/data/db"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// DB is the history database, opened in the Before hook
	DB *db.DB
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "bflex", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "bflex")
}

// connectNATS dials the configured NATS server.
func connectNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("bridge.nats.url is not configured")
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name("bflex"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}
	return conn, nil
}

// newAPIClient creates a REST client for the configured plugin.
func newAPIClient(cfg config.APIConfig) (*api.Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api.base_url is not configured")
	}
	return api.New(api.Config{BaseURL: cfg.BaseURL, Nonce: cfg.Nonce, Timeout: cfg.Timeout})
}

// publish sends one bridge event to a running bflex over NATS.
func publish(cfg config.NATSConfig, event string, body []byte) error {
	conn, err := connectNATS(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	subject := bridge.Subject(cfg.Prefix, event)
	if err := conn.Publish(subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return conn.Flush()
}
