package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mxprobe/mxprobe/internal/config"
	"github.com/mxprobe/mxprobe/internal/core/checker"
	"github.com/mxprobe/mxprobe/internal/core/engine"
	"github.com/mxprobe/mxprobe/internal/core/provider"
	errwrap "github.com/mxprobe/mxprobe/internal/errors"
)

// loadConfig decodes the global viper state with command-level overrides.
func loadConfig(ctx context.Context, overrides map[string]any) (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper(), overrides)
	if err != nil {
		return nil, errwrap.WrapConfigInvalid(ctx, err, "invalid configuration")
	}
	return cfg, nil
}

// buildCatalog layers the catalog file and then the config tables over the
// built-in providers. Config entries win.
func buildCatalog(limits config.LimitsConfig) (*provider.Catalog, error) {
	var layers []provider.Overrides

	if path := strings.TrimSpace(limits.CatalogFile); path != "" {
		fromFile, err := provider.LoadFile(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, fromFile)
	}

	fromConfig := provider.Overrides{
		Domains:         make(map[string]string),
		Intervals:       make(map[string]time.Duration, len(limits.Providers)),
		DefaultInterval: limits.DefaultProviderInterval,
	}
	for key, domains := range limits.Groups {
		for _, domain := range domains {
			fromConfig.Domains[domain] = key
		}
	}
	for key, interval := range limits.Providers {
		fromConfig.Intervals[key] = interval
	}

	return provider.New(append(layers, fromConfig)...), nil
}

// buildValidator wires the limiter, resolver and dialer from config.
func buildValidator(cfg *config.Config) (*checker.Validator, *engine.RateLimiter, error) {
	catalog, err := buildCatalog(cfg.Limits)
	if err != nil {
		return nil, nil, err
	}

	limiter := engine.NewRateLimiter(catalog, cfg.Limits.DomainInterval, cfg.Limits.GlobalInterval)
	validator := &checker.Validator{
		Gate:     limiter,
		Resolver: checker.NewPublicResolver(cfg.Verify.Nameservers, cfg.Verify.Timeout),
		Timeout:  cfg.Verify.Timeout,
		SMTPPort: cfg.Verify.SMTPPort,
	}
	return validator, limiter, nil
}

// flagOverrides collects the flags the user set into nested config keys.
// Keys map a flag name to its dotted config path.
func flagOverrides(cmd *cobra.Command, keys map[string]string) map[string]any {
	overrides := map[string]any{}
	for flag, path := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		section, key, ok := strings.Cut(path, ".")
		if !ok {
			overrides[path] = f.Value.String()
			continue
		}
		nested, _ := overrides[section].(map[string]any)
		if nested == nil {
			nested = map[string]any{}
			overrides[section] = nested
		}
		nested[key] = f.Value.String()
	}
	return overrides
}
