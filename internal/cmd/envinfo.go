package cmd

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/appid"
	"github.com/mxprobe/mxprobe/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, effective configuration and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()
		identity := appid.Get()

		log.Info("=== mxprobe Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		cfg, err := loadConfig(cmd.Context(), nil)
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Configuration:")
		log.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info("  Log Profile:    "+cfg.Logging.Profile, zap.String("log_profile", cfg.Logging.Profile))
		log.Info(fmt.Sprintf("  Store Enabled:  %t", cfg.Store.Enabled), zap.Bool("store_enabled", cfg.Store.Enabled))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			log.Info("  DB URL:         "+cfg.Store.URL, zap.String("db_url", cfg.Store.URL))
		} else {
			log.Info("  DB Path:        "+cfg.Store.Path, zap.String("db_path", cfg.Store.Path))
		}
		log.Info(fmt.Sprintf("  Metrics:        %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
		log.Info("  Config File:    " + viperConfigFile())
		log.Info("")

		log.Info("Verification:")
		log.Info(fmt.Sprintf("  Concurrency:      %d", cfg.Verify.Concurrency), zap.Int("concurrency", cfg.Verify.Concurrency))
		log.Info(fmt.Sprintf("  Checkpoint Every: %d", cfg.Verify.CheckpointEvery))
		log.Info("  Timeout:          " + cfg.Verify.Timeout.String())
		log.Info("  Nameservers:      " + strings.Join(cfg.Verify.Nameservers, ", "))
		log.Info(fmt.Sprintf("  SMTP Port:        %d", cfg.Verify.SMTPPort))
		log.Info("  Column:           " + cfg.Verify.Column)
		log.Info("")

		log.Info("Limits:")
		log.Info("  Domain Interval:  " + cfg.Limits.DomainInterval.String())
		log.Info("  Global Interval:  " + cfg.Limits.GlobalInterval.String())
		log.Info("  Provider Default: " + cfg.Limits.DefaultProviderInterval.String())
		if cfg.Limits.CatalogFile != "" {
			log.Info("  Catalog File:     " + cfg.Limits.CatalogFile)
		}
		keys := make([]string, 0, len(cfg.Limits.Providers))
		for key := range cfg.Limits.Providers {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			log.Info(fmt.Sprintf("  %s: %s", key, cfg.Limits.Providers[key]))
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
