// Package config provides centralized configuration management for VoxSentry.
// Settings merge three layers: built-in defaults, an optional YAML config
// file, and VOXSENTRY_* environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const appName = "voxsentry"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers the built-in defaults on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.voxsentry.io")
	v.SetDefault("api.max_audio_bytes", 25<<20)

	v.SetDefault("resilience.rate_per_second", 10.0)
	v.SetDefault("resilience.burst_capacity", 20)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.success_threshold", 2)
	v.SetDefault("resilience.recovery_timeout", 30*time.Second)
	v.SetDefault("resilience.max_attempts", 4)
	v.SetDefault("resilience.base_delay", 250*time.Millisecond)
	v.SetDefault("resilience.max_delay", 8*time.Second)
	v.SetDefault("resilience.per_request_timeout", 30*time.Second)
	v.SetDefault("resilience.wait_for_slot", false)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "libsql")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("health.enabled", true)

	v.SetDefault("workers", 4)
}

// Load decodes the merged viper settings into a typed Config and validates
// them. Invalid settings fail here, before any request is attempted.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe).
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(appName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appName + ".db"
	}
	return filepath.Join(dataDir, appName+".db")
}
