package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete application configuration. Values come from the
// defaults, an optional YAML file and VOXSENTRY_* environment variables.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	Workers    int              `mapstructure:"workers"`
}

// APIConfig points the client at the fraud-detection API.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Key     string `mapstructure:"key"`

	// MaxAudioBytes caps upload size. Zero keeps the client default.
	MaxAudioBytes int64 `mapstructure:"max_audio_bytes"`
}

// ResilienceConfig tunes the rate limiter, circuit breaker and retry policy
// shared by all requests in a process.
type ResilienceConfig struct {
	RatePerSecond    float64       `mapstructure:"rate_per_second"`
	BurstCapacity    int           `mapstructure:"burst_capacity"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	BaseDelay        time.Duration `mapstructure:"base_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`

	// PerRequestTimeout bounds each transport attempt.
	PerRequestTimeout time.Duration `mapstructure:"per_request_timeout"`

	// WaitForSlot blocks on the rate limiter instead of rejecting.
	WaitForSlot bool `mapstructure:"wait_for_slot"`
}

// ServerConfig contains HTTP monitor server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig selects the log level and gofulmen logging profile.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level.
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format).
	// Metrics are also available at the main HTTP port in JSON format.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate rejects configurations the engine constructors would refuse, so
// bad settings fail before any work starts.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration is required")
	}

	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}

	r := c.Resilience
	if r.RatePerSecond <= 0 {
		return fmt.Errorf("resilience.rate_per_second must be positive, got %v", r.RatePerSecond)
	}
	if r.BurstCapacity < 1 {
		return fmt.Errorf("resilience.burst_capacity must be at least 1, got %d", r.BurstCapacity)
	}
	if r.FailureThreshold < 1 {
		return fmt.Errorf("resilience.failure_threshold must be at least 1, got %d", r.FailureThreshold)
	}
	if r.SuccessThreshold < 1 {
		return fmt.Errorf("resilience.success_threshold must be at least 1, got %d", r.SuccessThreshold)
	}
	if r.RecoveryTimeout <= 0 {
		return fmt.Errorf("resilience.recovery_timeout must be positive, got %v", r.RecoveryTimeout)
	}
	if r.MaxAttempts < 1 {
		return fmt.Errorf("resilience.max_attempts must be at least 1, got %d", r.MaxAttempts)
	}
	if r.BaseDelay <= 0 {
		return fmt.Errorf("resilience.base_delay must be positive, got %v", r.BaseDelay)
	}
	if r.MaxDelay < r.BaseDelay {
		return fmt.Errorf("resilience.max_delay %v must not be below base_delay %v", r.MaxDelay, r.BaseDelay)
	}
	if r.PerRequestTimeout < 0 {
		return fmt.Errorf("resilience.per_request_timeout must not be negative, got %v", r.PerRequestTimeout)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	return nil
}
