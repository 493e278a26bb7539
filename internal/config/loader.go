// Package config provides configuration management for mxprobe: code
// defaults, an optional YAML config file, MXPROBE_* environment variables
// and runtime overrides, decoded into a typed Config.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/mxprobe/mxprobe/internal/appid"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers default configuration values on v.
func SetDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "simple")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	// Store defaults
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Verification defaults
	v.SetDefault("verify.concurrency", 5)
	v.SetDefault("verify.checkpoint_every", 100)
	v.SetDefault("verify.timeout", "10s")
	v.SetDefault("verify.nameservers", []string{"8.8.8.8", "1.1.1.1"})
	v.SetDefault("verify.smtp_port", 25)
	v.SetDefault("verify.column", "email")

	// Rate limit defaults
	v.SetDefault("limits.domain_interval", "300ms")
	v.SetDefault("limits.global_interval", "100ms")
	v.SetDefault("limits.default_provider_interval", "300ms")
	v.SetDefault("limits.catalog_file", "")
}

// BindEnv configures MXPROBE_* environment lookups, e.g.
// MXPROBE_VERIFY_CONCURRENCY for verify.concurrency.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(appid.Get().EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the settings held by v into a Config. Runtime overrides are
// nested maps applied above every other layer. Load is safe to call more
// than once; the latest result becomes the current config.
func Load(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = viper.New()
		BindEnv(v)
	}
	SetDefaults(v)

	for _, overrides := range runtimeOverrides {
		for key, value := range flatten("", overrides) {
			v.Set(key, value)
		}
	}

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

	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	var problems []string
	if cfg.Verify.Concurrency < 1 {
		problems = append(problems, "verify.concurrency must be at least 1")
	}
	if cfg.Verify.CheckpointEvery < 1 {
		problems = append(problems, "verify.checkpoint_every must be at least 1")
	}
	if cfg.Verify.Timeout <= 0 {
		problems = append(problems, "verify.timeout must be positive")
	}
	if len(cfg.Verify.Nameservers) == 0 {
		problems = append(problems, "verify.nameservers must not be empty")
	}
	if cfg.Verify.SMTPPort < 1 || cfg.Verify.SMTPPort > 65535 {
		problems = append(problems, "verify.smtp_port must be between 1 and 65535")
	}
	if strings.TrimSpace(cfg.Verify.Column) == "" {
		problems = append(problems, "verify.column is required")
	}
	if cfg.Limits.DomainInterval < 0 || cfg.Limits.GlobalInterval < 0 || cfg.Limits.DefaultProviderInterval < 0 {
		problems = append(problems, "limits intervals must not be negative")
	}
	if cfg.Limits.DefaultProviderInterval == 0 {
		problems = append(problems, "limits.default_provider_interval must be positive")
	}
	for key, interval := range cfg.Limits.Providers {
		if interval < 0 {
			problems = append(problems, fmt.Sprintf("limits.providers.%s must not be negative", key))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func normalize(cfg *Config) {
	servers := make([]string, 0, len(cfg.Verify.Nameservers))
	for _, server := range cfg.Verify.Nameservers {
		if trimmed := strings.TrimSpace(server); trimmed != "" {
			servers = append(servers, trimmed)
		}
	}
	cfg.Verify.Nameservers = servers
	cfg.Verify.Column = strings.TrimSpace(cfg.Verify.Column)

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
}

func flatten(prefix string, values map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range values {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok && len(nested) > 0 {
			for k, v := range flatten(full, nested) {
				out[k] = v
			}
			continue
		}
		out[full] = value
	}
	return out
}

// ConfigDir returns the XDG-compliant config directory for the app.
func ConfigDir() string {
	return gfconfig.GetAppConfigDir(appid.Get().ConfigName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	dir := ConfigDir()
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	identity := appid.Get()
	dataDir := gfconfig.GetAppDataDir(identity.ConfigName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + identity.BinaryName + ".db"
	}
	return filepath.Join(dataDir, identity.BinaryName+".db")
}
