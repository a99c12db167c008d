// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"veriledger/internal/ledger"
	"veriledger/internal/velocity"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server ServerConfig
	App    AppConfig
	Store  StoreConfig
	Ledger LedgerConfig
}

// ServerConfig holds HTTP server settings for the query API.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"veriledger"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Admin       string `envconfig:"VERILEDGER_ADMIN" default:"admin"`
	Verbose     bool   `envconfig:"VERILEDGER_VERBOSE" default:"false"`
}

// StoreConfig holds the SQLite database location.
type StoreConfig struct {
	Path string `envconfig:"VERILEDGER_DB_PATH" default:"./data/veriledger.db"`
}

// LedgerConfig holds the tunable epoch windows. Zero values fall back to
// the engine defaults; persisted tunings from a previous run take
// precedence over both.
type LedgerConfig struct {
	ValidityPeriod uint64 `envconfig:"VERILEDGER_VALIDITY_PERIOD" default:"0"`
	AnalysisWindow uint64 `envconfig:"VERILEDGER_ANALYSIS_WINDOW" default:"0"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Validate rejects configurations the engines would refuse at runtime.
func (c *Config) Validate() error {
	if c.App.Admin == "" {
		return fmt.Errorf("config: administrator principal must not be empty")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("config: database path must not be empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if w := c.Ledger.AnalysisWindow; w != 0 && (w < velocity.MinAnalysisWindow || w > velocity.MaxAnalysisWindow) {
		return fmt.Errorf("config: analysis window %d outside bounds [%d, %d]",
			w, velocity.MinAnalysisWindow, velocity.MaxAnalysisWindow)
	}
	return nil
}

// LedgerOptions converts the configured validity period into ledger options.
func (c *Config) LedgerOptions() []ledger.Option {
	var opts []ledger.Option
	if c.Ledger.ValidityPeriod > 0 {
		opts = append(opts, ledger.WithValidityPeriod(c.Ledger.ValidityPeriod))
	}
	return opts
}

// VelocityOptions converts the configured analysis window into engine options.
func (c *Config) VelocityOptions() []velocity.Option {
	var opts []velocity.Option
	if c.Ledger.AnalysisWindow > 0 {
		opts = append(opts, velocity.WithAnalysisWindow(c.Ledger.AnalysisWindow))
	}
	return opts
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
