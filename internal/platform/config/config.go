// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"
)

// Config holds the server configuration.
type Config struct {
	// ListenAddr is the address to listen on.
	// Example: ":8080"
	ListenAddr string `toml:"listen_addr" env:"ROOMCLERK_LISTEN_ADDR"`

	// Store holds persistence driver settings.
	Store StoreConfig `toml:"store" envPrefix:"ROOMCLERK_STORE_"`

	// Booking holds lifecycle policy settings.
	Booking BookingConfig `toml:"booking" envPrefix:"ROOMCLERK_BOOKING_"`

	// Reconcile holds the ghost-meeting sweep settings.
	Reconcile ReconcileConfig `toml:"reconcile" envPrefix:"ROOMCLERK_RECONCILE_"`

	// Events holds notification bus settings.
	Events EventsConfig `toml:"events" envPrefix:"ROOMCLERK_EVENTS_"`

	// RateLimit holds the per-client request limit settings.
	RateLimit RateLimitConfig `toml:"ratelimit" envPrefix:"ROOMCLERK_RATELIMIT_"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" envPrefix:"ROOMCLERK_LOGGING_"`

	// HTTP holds raw per-service configuration, decoded by each mounted
	// service.
	HTTP HTTPConfig `toml:"http"`
}

// StoreConfig selects and configures the persistence driver.
type StoreConfig struct {
	// Driver is the driver name: memory, sqlite.
	Driver string `toml:"driver" env:"DRIVER"`

	// DataDir is the directory for data files (sqlite db).
	DataDir string `toml:"data_dir" env:"DATA_DIR"`
}

// BookingConfig holds lifecycle policy parameters.
type BookingConfig struct {
	// CheckinWindowMinutes is how far from the scheduled start a
	// check-in is accepted, on either side.
	CheckinWindowMinutes int `toml:"checkin_window_minutes" env:"CHECKIN_WINDOW_MINUTES"`
}

// CheckinWindow returns the window as a duration, defaulting to 15m.
func (c BookingConfig) CheckinWindow() time.Duration {
	if c.CheckinWindowMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.CheckinWindowMinutes) * time.Minute
}

// ReconcileConfig holds the ghost-meeting sweep parameters.
type ReconcileConfig struct {
	// IntervalMinutes is the sweep cadence.
	IntervalMinutes int `toml:"interval_minutes" env:"INTERVAL_MINUTES"`

	// GracePeriodMinutes is how long after a meeting's start the sweep
	// waits for a check-in before cancelling.
	GracePeriodMinutes int `toml:"grace_period_minutes" env:"GRACE_PERIOD_MINUTES"`
}

// Interval returns the sweep cadence as a duration, defaulting to 5m.
func (c ReconcileConfig) Interval() time.Duration {
	if c.IntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// GracePeriod returns the grace period as a duration, defaulting to 15m.
func (c ReconcileConfig) GracePeriod() time.Duration {
	if c.GracePeriodMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.GracePeriodMinutes) * time.Minute
}

// RateLimitConfig holds per-client request limit parameters. Requests
// are counted per client IP over a fixed window.
type RateLimitConfig struct {
	// Enabled turns the limiter on.
	Enabled bool `toml:"enabled" env:"ENABLED"`

	// RequestsPerWindow is the number of requests allowed per window.
	RequestsPerWindow int64 `toml:"requests_per_window" env:"REQUESTS_PER_WINDOW"`

	// WindowSeconds is the window length.
	WindowSeconds int `toml:"window_seconds" env:"WINDOW_SECONDS"`
}

// Window returns the window as a duration, defaulting to 60s.
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// Limit returns the per-window request cap, defaulting to 300.
func (c RateLimitConfig) Limit() int64 {
	if c.RequestsPerWindow <= 0 {
		return 300
	}
	return c.RequestsPerWindow
}

// EventsConfig holds notification bus parameters.
type EventsConfig struct {
	// Buffer is the event channel capacity before Publish drops.
	Buffer int `toml:"buffer" env:"BUFFER"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" env:"LEVEL"`
}

// HTTPConfig holds raw per-service config maps, keyed by service name.
type HTTPConfig struct {
	Services map[string]map[string]any `toml:"services"`
}

// Defaults returns a Config with the documented default values.
func Defaults() *Config {
	return &Config{
		ListenAddr: ":8080",
		Store: StoreConfig{
			Driver:  "sqlite",
			DataDir: "./data",
		},
		Booking: BookingConfig{
			CheckinWindowMinutes: 15,
		},
		Reconcile: ReconcileConfig{
			IntervalMinutes:    5,
			GracePeriodMinutes: 15,
		},
		Events: EventsConfig{
			Buffer: 64,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 300,
			WindowSeconds:     60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks config invariants after all layers are applied.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("store.driver %q: must be one of memory, sqlite", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required for the sqlite driver")
	}
	if c.Reconcile.IntervalMinutes < 0 {
		return fmt.Errorf("reconcile.interval_minutes must not be negative")
	}
	if c.Reconcile.GracePeriodMinutes < 0 {
		return fmt.Errorf("reconcile.grace_period_minutes must not be negative")
	}
	if c.Booking.CheckinWindowMinutes < 0 {
		return fmt.Errorf("booking.checkin_window_minutes must not be negative")
	}
	if c.RateLimit.RequestsPerWindow < 0 {
		return fmt.Errorf("ratelimit.requests_per_window must not be negative")
	}
	if c.RateLimit.WindowSeconds < 0 {
		return fmt.Errorf("ratelimit.window_seconds must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q: must be one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
