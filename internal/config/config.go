// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers .env, YAML and RSLIST_ environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Slot resolution modes for list composition.
const (
	ResolveByIndex    = "index"
	ResolveByIdentity = "identity"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the persistence backend: memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// DatabaseDSN is the PostgreSQL connection string used by the postgres driver.
	DatabaseDSN string `koanf:"database_dsn"`

	// DefaultVoteBudget is granted to users registered without an explicit budget.
	DefaultVoteBudget int `koanf:"default_vote_budget"`

	// SlotResolution picks how a rank slot finds its event: index or identity.
	SlotResolution string `koanf:"slot_resolution"`

	// BuyMaxRetries bounds retries of a purchase that lost a slot insert race.
	BuyMaxRetries int `koanf:"buy_max_retries"`

	ReadTimeoutMS  int `koanf:"read_timeout_ms"`
	WriteTimeoutMS int `koanf:"write_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		StoreDriver:       DriverMemory,
		DefaultVoteBudget: 10,
		SlotResolution:    ResolveByIndex,
		BuyMaxRetries:     3,
		ReadTimeoutMS:     5_000,
		WriteTimeoutMS:    10_000,
	}
}

// ReadTimeout returns the HTTP read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the HTTP write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.StoreDriver) {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: database_dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch strings.ToLower(c.SlotResolution) {
	case ResolveByIndex, ResolveByIdentity:
	default:
		return fmt.Errorf("%w: unknown slot_resolution %q", ErrInvalidConfig, c.SlotResolution)
	}
	if c.DefaultVoteBudget < 0 {
		return fmt.Errorf("%w: default_vote_budget must not be negative", ErrInvalidConfig)
	}
	if c.BuyMaxRetries < 0 {
		return fmt.Errorf("%w: buy_max_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}
