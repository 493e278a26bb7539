package main

import (
	"github.com/mxprobe/mxprobe/internal/cmd"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-10-14"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		// Usage errors and fatal run errors land here; per-address
		// failures never do.
		cmd.ExitForError(err)
	}
}
