package config

import (
	"time"
)

// Config represents the complete application configuration. Values come
// from code defaults, then the optional config file, then MXPROBE_*
// environment variables, then command flags.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Store   StoreConfig   `mapstructure:"store"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	Limits  LimitsConfig  `mapstructure:"limits"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logger shape: simple (console) or structured (JSON)
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// VerifyConfig controls the validator and the batch worker pool.
type VerifyConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	CheckpointEvery int           `mapstructure:"checkpoint_every"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Nameservers     []string      `mapstructure:"nameservers"`
	SMTPPort        int           `mapstructure:"smtp_port"`
	Column          string        `mapstructure:"column"`
}

// LimitsConfig contains the probe spacing policy.
//
// Providers and Groups are keyed by provider name. Viper splits keys on
// dots, so domains appear only as values; providers whose key contains a dot
// are configured through CatalogFile instead.
type LimitsConfig struct {
	DomainInterval          time.Duration            `mapstructure:"domain_interval"`
	GlobalInterval          time.Duration            `mapstructure:"global_interval"`
	DefaultProviderInterval time.Duration            `mapstructure:"default_provider_interval"`
	Providers               map[string]time.Duration `mapstructure:"providers"`
	Groups                  map[string][]string      `mapstructure:"groups"`
	CatalogFile             string                   `mapstructure:"catalog_file"`
}
