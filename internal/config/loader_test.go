package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	BindEnv(v)
	return v
}

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		cfg, err := Load(newTestViper())
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify logging defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "simple", cfg.Logging.Profile)

		// Verify metrics defaults
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)

		// Verify store defaults
		assert.True(t, cfg.Store.Enabled)
		assert.Equal(t, "libsql", cfg.Store.Driver)
		assert.Equal(t, "mxprobe.db", filepath.Base(cfg.Store.Path))

		// Verify verification defaults
		assert.Equal(t, 5, cfg.Verify.Concurrency)
		assert.Equal(t, 100, cfg.Verify.CheckpointEvery)
		assert.Equal(t, 10*time.Second, cfg.Verify.Timeout)
		assert.Equal(t, []string{"8.8.8.8", "1.1.1.1"}, cfg.Verify.Nameservers)
		assert.Equal(t, 25, cfg.Verify.SMTPPort)
		assert.Equal(t, "email", cfg.Verify.Column)

		// Verify limit defaults
		assert.Equal(t, 300*time.Millisecond, cfg.Limits.DomainInterval)
		assert.Equal(t, 100*time.Millisecond, cfg.Limits.GlobalInterval)
		assert.Equal(t, 300*time.Millisecond, cfg.Limits.DefaultProviderInterval)
		assert.Empty(t, cfg.Limits.Providers)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"verify": map[string]any{
				"concurrency": 12,
				"timeout":     "3s",
			},
			"limits": map[string]any{
				"providers": map[string]any{"google": "1s"},
			},
		}

		cfg, err := Load(newTestViper(), overrides)
		require.NoError(t, err)

		assert.Equal(t, 12, cfg.Verify.Concurrency)
		assert.Equal(t, 3*time.Second, cfg.Verify.Timeout)
		assert.Equal(t, time.Second, cfg.Limits.Providers["google"])
		assert.Equal(t, 100, cfg.Verify.CheckpointEvery)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("MXPROBE_VERIFY_CONCURRENCY", "9")
		t.Setenv("MXPROBE_VERIFY_NAMESERVERS", "9.9.9.9, 149.112.112.112")
		t.Setenv("MXPROBE_LIMITS_GLOBAL_INTERVAL", "50ms")
		t.Setenv("MXPROBE_METRICS_ENABLED", "true")

		cfg, err := Load(newTestViper())
		require.NoError(t, err)

		assert.Equal(t, 9, cfg.Verify.Concurrency)
		assert.Equal(t, []string{"9.9.9.9", "149.112.112.112"}, cfg.Verify.Nameservers)
		assert.Equal(t, 50*time.Millisecond, cfg.Limits.GlobalInterval)
		assert.True(t, cfg.Metrics.Enabled)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("MXPROBE_VERIFY_CONCURRENCY", "4")

		cfg, err := Load(newTestViper(), map[string]any{
			"verify": map[string]any{"concurrency": 6},
		})
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Verify.Concurrency)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `verify:
  column: address
  checkpoint_every: 25
limits:
  domain_interval: 1s
  providers:
    fastmail: 250ms
  groups:
    fastmail: [fastmail.com, fastmail.fm]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		v := newTestViper()
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, "address", cfg.Verify.Column)
		assert.Equal(t, 25, cfg.Verify.CheckpointEvery)
		assert.Equal(t, time.Second, cfg.Limits.DomainInterval)
		assert.Equal(t, 250*time.Millisecond, cfg.Limits.Providers["fastmail"])
		assert.Equal(t, []string{"fastmail.com", "fastmail.fm"}, cfg.Limits.Groups["fastmail"])
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := Load(newTestViper(), map[string]any{
			"verify": map[string]any{"concurrency": 0},
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "verify.concurrency")
	})
}

func TestGetConfig(t *testing.T) {
	cfg, err := Load(newTestViper())
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Verify.Concurrency, retrieved.Verify.Concurrency)
}

func TestValidate(t *testing.T) {
	require.Error(t, Validate(nil))

	cfg := &Config{
		Verify: VerifyConfig{
			Concurrency:     1,
			CheckpointEvery: 1,
			Timeout:         time.Second,
			Nameservers:     []string{"8.8.8.8"},
			SMTPPort:        25,
			Column:          "email",
		},
		Limits: LimitsConfig{
			Providers: map[string]time.Duration{"google": -time.Second},
		},
	}
	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "limits.providers.google")
}

func TestValidateDefaultProviderInterval(t *testing.T) {
	cfg, err := Load(newTestViper())
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	cfg.Limits.DefaultProviderInterval = 0
	err = Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "limits.default_provider_interval must be positive")

	_, err = Load(newTestViper(), map[string]any{
		"limits": map[string]any{"default_provider_interval": "0s"},
	})
	require.Error(t, err)
}
