package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/appid"
	"github.com/mxprobe/mxprobe/internal/config"
	"github.com/mxprobe/mxprobe/internal/core/checker"
	"github.com/mxprobe/mxprobe/internal/observability"
)

var doctorProbeDomain string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the local setup: config, store, DNS resolution
through the configured nameservers and outbound TCP to port 25.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		log := observability.CLILogger

		log.Info("=== " + appid.Get().BinaryName + " doctor ===")
		log.Info("")
		log.Info("Running diagnostic checks...")
		log.Info("")

		allChecks := true
		totalChecks := 7

		// Check 1: Go version
		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			log.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			log.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		// Check 2: Gofulmen and Crucible
		version := crucible.GetVersion()
		if version.Gofulmen != "" && version.Crucible != "" {
			log.Info(fmt.Sprintf("[2/%d] Checking Gofulmen... ✅ v%s (crucible v%s)", totalChecks, version.Gofulmen, version.Crucible))
		} else {
			log.Warn(fmt.Sprintf("[2/%d] Checking Gofulmen... ⚠️  version metadata unavailable", totalChecks))
			allChecks = false
		}

		// Check 3: Config directory
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			log.Warn(fmt.Sprintf("[3/%d] Checking config directory... ⚠️  cannot resolve config directory", totalChecks))
			allChecks = false
		} else {
			log.Info(fmt.Sprintf("[3/%d] Checking config directory... ✅ %s", totalChecks, filepath.Dir(configPath)), zap.String("config_dir", filepath.Dir(configPath)))
		}

		// Check 4: Config
		cfg, cfgErr := loadConfig(ctx, nil)
		if cfgErr != nil {
			log.Error(fmt.Sprintf("[4/%d] Checking configuration... ❌ invalid", totalChecks), zap.Error(cfgErr))
			log.Info("")
			log.Warn("⚠️  Remaining checks need a valid configuration.")
			return
		}
		log.Info(fmt.Sprintf("[4/%d] Checking configuration... ✅ %s", totalChecks, viperConfigFile()))

		// Check 5: Store
		switch {
		case !cfg.Store.Enabled:
			log.Info(fmt.Sprintf("[5/%d] Checking store... ✅ disabled", totalChecks))
		default:
			db, err := openStore(ctx, cfg.Store)
			if err != nil {
				log.Error(fmt.Sprintf("[5/%d] Checking store... ❌ cannot open", totalChecks), zap.Error(err))
				allChecks = false
				break
			}
			driver := db.Driver()
			_ = db.Close()
			log.Info(fmt.Sprintf("[5/%d] Checking store... ✅ %s via %s", totalChecks, describeStore(cfg.Store), driver))
		}

		// Check 6: DNS
		resolver := checker.NewPublicResolver(cfg.Verify.Nameservers, cfg.Verify.Timeout)
		mxHost, dnsErr := probeMX(ctx, resolver, doctorProbeDomain, cfg.Verify.Timeout)
		if dnsErr != nil {
			log.Error(fmt.Sprintf("[6/%d] Checking DNS (%s)... ❌ %v", totalChecks, strings.Join(cfg.Verify.Nameservers, ", "), dnsErr))
			allChecks = false
		} else {
			log.Info(fmt.Sprintf("[6/%d] Checking DNS (%s)... ✅ %s MX %s", totalChecks, strings.Join(cfg.Verify.Nameservers, ", "), doctorProbeDomain, mxHost))
		}

		// Check 7: Outbound SMTP port
		if dnsErr != nil {
			log.Warn(fmt.Sprintf("[7/%d] Checking port %d egress... ⚠️  skipped (no MX host)", totalChecks, cfg.Verify.SMTPPort))
			allChecks = false
		} else {
			dialer := &net.Dialer{Timeout: cfg.Verify.Timeout}
			if err := probePort(ctx, dialer, mxHost, cfg.Verify.SMTPPort); err != nil {
				log.Error(fmt.Sprintf("[7/%d] Checking port %d egress... ❌ %v", totalChecks, cfg.Verify.SMTPPort, err))
				log.Info("       Many ISPs and cloud providers block outbound port 25; every address will report smtp connect failures.")
				allChecks = false
			} else {
				log.Info(fmt.Sprintf("[7/%d] Checking port %d egress... ✅ %s reachable", totalChecks, cfg.Verify.SMTPPort, mxHost))
			}
		}

		log.Info("")
		if allChecks {
			log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appid.Get().BinaryName))
		} else {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		log.Info("")
		log.Info("=== End Diagnostics ===")
	},
}

var (
	doctorInitForce   bool
	doctorResetConfig bool
	doctorResetData   bool
	doctorResetAll    bool
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(buildInitConfig()), 0644); err != nil { // #nosec G306 -- config holds no secrets by default
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger
		configPath := config.DefaultConfigPath()

		log.Info("Configuration:")
		log.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(fileExists(configPath))))
		log.Info("  In use:        " + viperConfigFile())

		cfg, err := loadConfig(cmd.Context(), nil)
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return nil
		}
		log.Info("  Database:      " + describeStore(cfg.Store))

		log.Info("")
		log.Info("Environment:")
		for _, name := range []string{"VERIFY_CONCURRENCY", "VERIFY_NAMESERVERS", "STORE_AUTH_TOKEN"} {
			key := appid.Get().EnvPrefix + "_" + name
			log.Info(fmt.Sprintf("  %s: %s", key, envStatus(key)))
		}
		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration and/or data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if doctorResetAll {
			doctorResetConfig = true
			doctorResetData = true
		}

		if !doctorResetConfig && !doctorResetData {
			return fmt.Errorf("specify --config, --data, or --all")
		}

		if doctorResetConfig {
			configPath := config.DefaultConfigPath()
			if configPath == "" {
				observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			} else if err := os.Remove(configPath); err == nil {
				observability.CLILogger.Info("Config removed", zap.String("path", configPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Config already removed", zap.String("path", configPath))
			} else {
				return fmt.Errorf("remove config file: %w", err)
			}
		}

		if doctorResetData {
			cfg, err := loadConfig(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if cfg.Store.URL != "" {
				return fmt.Errorf("remote store configured; database reset is not supported")
			}

			absPath, _ := filepath.Abs(cfg.Store.Path)
			if err := os.Remove(absPath); err == nil {
				observability.CLILogger.Info("Database removed", zap.String("path", absPath))
			} else if os.IsNotExist(err) {
				observability.CLILogger.Info("Database already removed", zap.String("path", absPath))
			} else {
				return fmt.Errorf("remove database: %w", err)
			}
		}

		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := activeConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file not found: %s: %w", configPath, err)
		}

		if _, err := loadConfig(cmd.Context(), nil); err != nil {
			return err
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorResetCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorCmd.Flags().StringVar(&doctorProbeDomain, "probe-domain", "gmail.com", "domain whose MX host is used for the DNS and port checks")

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")

	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove local database")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")
}

// probeMX returns the first usable MX host of domain.
func probeMX(ctx context.Context, resolver checker.MXResolver, domain string, timeout time.Duration) (string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	records, err := resolver.LookupMX(lookupCtx, domain)
	if err != nil {
		return "", err
	}
	for _, record := range records {
		if record == nil {
			continue
		}
		if host := strings.TrimSuffix(record.Host, "."); host != "" {
			return host, nil
		}
	}
	return "", fmt.Errorf("no mx records for %s", domain)
}

// probePort opens and closes one TCP connection to host:port.
func probePort(ctx context.Context, dialer checker.Dialer, host string, port int) error {
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}

func describeStore(cfg config.StoreConfig) string {
	if !cfg.Enabled {
		return "disabled"
	}
	if cfg.URL != "" {
		return cfg.URL + " (remote)"
	}
	absPath, _ := filepath.Abs(cfg.Path)
	info, err := os.Stat(absPath)
	switch {
	case err == nil:
		return fmt.Sprintf("%s (%s)", absPath, formatFileSize(info.Size()))
	case os.IsNotExist(err):
		return absPath + " (not created yet)"
	default:
		return fmt.Sprintf("%s (error: %v)", absPath, err)
	}
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

func buildInitConfig() string {
	identity := appid.Get()
	lines := []string{
		fmt.Sprintf("# %s config - created by '%s doctor init'", identity.BinaryName, identity.BinaryName),
		"logging:",
		"  level: info",
		"  profile: simple",
		"store:",
		"  enabled: true",
		"verify:",
		"  concurrency: 5",
		"  checkpoint_every: 100",
		"  timeout: 10s",
		"  nameservers:",
		"    - 8.8.8.8",
		"    - 1.1.1.1",
		"  column: email",
		"limits:",
		"  domain_interval: 300ms",
		"  global_interval: 100ms",
		"  default_provider_interval: 300ms",
		"  # providers:",
		"  #   google: 500ms",
		"  # groups:",
		"  #   corp:",
		"  #     - example.com",
		"  #     - example.org",
	}
	return strings.Join(lines, "\n") + "\n"
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}
