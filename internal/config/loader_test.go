package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	require.Equal(t, "https://api.voxsentry.io", cfg.API.BaseURL)
	require.InDelta(t, 10.0, cfg.Resilience.RatePerSecond, 1e-9)
	require.Equal(t, 20, cfg.Resilience.BurstCapacity)
	require.Equal(t, 5, cfg.Resilience.FailureThreshold)
	require.Equal(t, 2, cfg.Resilience.SuccessThreshold)
	require.Equal(t, 30*time.Second, cfg.Resilience.RecoveryTimeout)
	require.Equal(t, 4, cfg.Resilience.MaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.Resilience.BaseDelay)
	require.Equal(t, 8*time.Second, cfg.Resilience.MaxDelay)
	require.Equal(t, 4, cfg.Workers)
	require.NotEmpty(t, cfg.Store.Path)

	require.Same(t, cfg, GetConfig())
}

func TestLoadYAMLOverrides(t *testing.T) {
	v := newViper(t)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(strings.TrimSpace(`
api:
  base_url: https://sandbox.voxsentry.io
resilience:
  rate_per_second: 2.5
  burst_capacity: 3
  recovery_timeout: 45s
  base_delay: 100ms
  max_delay: 2s
workers: 8
`))))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "https://sandbox.voxsentry.io", cfg.API.BaseURL)
	require.InDelta(t, 2.5, cfg.Resilience.RatePerSecond, 1e-9)
	require.Equal(t, 3, cfg.Resilience.BurstCapacity)
	require.Equal(t, 45*time.Second, cfg.Resilience.RecoveryTimeout)
	require.Equal(t, 100*time.Millisecond, cfg.Resilience.BaseDelay)
	require.Equal(t, 8, cfg.Workers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VOXSENTRY_RESILIENCE_MAX_ATTEMPTS", "7")
	t.Setenv("VOXSENTRY_API_KEY", "env-key")

	v := newViper(t)
	v.SetEnvPrefix("VOXSENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves known keys, so bind the overridden ones.
	require.NoError(t, v.BindEnv("resilience.max_attempts"))
	require.NoError(t, v.BindEnv("api.key"))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Resilience.MaxAttempts)
	require.Equal(t, "env-key", cfg.API.Key)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value any
	}{
		{"missing base url", "api.base_url", ""},
		{"zero rate", "resilience.rate_per_second", 0},
		{"negative rate", "resilience.rate_per_second", -1},
		{"zero burst", "resilience.burst_capacity", 0},
		{"zero failure threshold", "resilience.failure_threshold", 0},
		{"zero success threshold", "resilience.success_threshold", 0},
		{"zero recovery timeout", "resilience.recovery_timeout", "0s"},
		{"zero attempts", "resilience.max_attempts", 0},
		{"zero base delay", "resilience.base_delay", "0s"},
		{"max below base", "resilience.max_delay", "1ms"},
		{"zero workers", "workers", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tc.key, tc.value)
			_, err := Load(v)
			require.Error(t, err)
		})
	}
}
