package cmd

import (
	"fmt"
	"os"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/appid"
	"github.com/mxprobe/mxprobe/internal/config"
	"github.com/mxprobe/mxprobe/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appid.Get().BinaryName,
	Short: appid.Get().Description,
	Long: fmt.Sprintf(`%s - %s

Checks address syntax, MX records and TCP reachability of the first mail
exchanger, spacing probes per domain, per mail provider and globally.`,
		appid.Get().BinaryName, appid.Get().Description),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early so gofulmen internals do not emit
	// metrics to stdout. Metrics are enabled later from config.
	observability.DisableGlobalTelemetry()

	cobra.OnInitialize(initConfig)

	identity := appid.Get()

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	identity := appid.Get()

	// Initialize CLI logger early so we can use it in config loading
	observability.InitCLILogger(identity.BinaryName, verbose)

	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		appConfigDir := gfconfig.GetAppConfigDir(identity.ConfigName)
		if appConfigDir == "" {
			if verbose {
				observability.CLILogger.Warn("Could not resolve XDG config directory, falling back to home directory")
			}
			// Fall back to home directory
			home, err := os.UserHomeDir()
			if err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
			}
			viper.AddConfigPath(home)
			viper.SetConfigName("." + identity.ConfigName)
		} else {
			viper.AddConfigPath(appConfigDir)
			viper.SetConfigName("config")
		}

		// Also search in current directory
		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
	}

	config.BindEnv(viper.GetViper())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// It's OK if config file doesn't exist, we have defaults
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		} else if cfgFile != "" {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to read config file", err)
		} else {
			observability.CLILogger.Warn("Error reading config file", zap.Error(err))
		}
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		// Commands that need config report the error themselves.
		observability.CLILogger.Debug("Config not loaded during init", zap.Error(err))
		return
	}

	observability.InitCLILogger(identity.BinaryName, verbose,
		observability.WithLevel(cfg.Logging.Level),
		observability.WithProfile(cfg.Logging.Profile))

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port); err != nil {
			observability.CLILogger.Warn("Metrics disabled", zap.Error(err))
			return
		}
		observability.CLILogger.Info("Metrics endpoint started", zap.Int("port", observability.GetMetricsPort()))
	}
}

// activeConfigPath returns the config file viper read, else the default path.
func activeConfigPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return config.DefaultConfigPath()
}

func viperConfigFile() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "(none, using defaults)"
}
