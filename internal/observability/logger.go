package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

// CLILogger is the process logger. It stays nil until InitCLILogger runs, so
// library code must tolerate a nil logger.
var CLILogger *logging.Logger

// InitCLILogger initializes the process logger.
//
// Profile "structured" emits JSON lines to stderr for log shippers; anything
// else uses the SIMPLE console profile. Verbose forces DEBUG.
func InitCLILogger(serviceName string, verbose bool, opts ...LoggerOption) {
	settings := loggerSettings{level: "info", profile: "simple"}
	for _, opt := range opts {
		opt(&settings)
	}
	if verbose {
		settings.level = "debug"
	}

	logger, err := newLogger(serviceName, settings)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}

	CLILogger = logger
}

// LoggerOption adjusts logger initialization.
type LoggerOption func(*loggerSettings)

type loggerSettings struct {
	level   string
	profile string
}

// WithLevel sets the minimum level (trace, debug, info, warn, error).
func WithLevel(level string) LoggerOption {
	return func(s *loggerSettings) {
		if strings.TrimSpace(level) != "" {
			s.level = level
		}
	}
}

// WithProfile selects the logging profile (simple, structured).
func WithProfile(profile string) LoggerOption {
	return func(s *loggerSettings) {
		if strings.TrimSpace(profile) != "" {
			s.profile = profile
		}
	}
}

func newLogger(serviceName string, settings loggerSettings) (*logging.Logger, error) {
	if strings.EqualFold(strings.TrimSpace(settings.profile), "structured") {
		return logging.New(&logging.LoggerConfig{
			Profile:      logging.ProfileStructured,
			DefaultLevel: parseLogLevel(settings.level),
			Service:      serviceName,
			Environment:  "cli",
			Middleware: []logging.MiddlewareConfig{
				{
					Name:    "correlation",
					Enabled: true,
					Order:   100,
					Config:  make(map[string]any),
				},
			},
			Sinks: []logging.SinkConfig{
				{
					Type:   "console",
					Format: "json",
					Console: &logging.ConsoleSinkConfig{
						Stream:   "stderr",
						Colorize: false,
					},
				},
			},
			EnableCaller: true,
		})
	}

	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		return nil, err
	}
	if level := parseLogLevel(settings.level); level == "DEBUG" || level == "TRACE" {
		logger.SetLevel(logging.DEBUG)
	}
	return logger, nil
}

// parseLogLevel converts string log level to logging severity string
func parseLogLevel(levelStr string) string {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "info":
		return "INFO"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// exitWithCodeStderr exits with a semantic exit code, writing to stderr.
// Used only when the logger itself cannot be built.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}
