package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mxprobe/mxprobe/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// openSink returns stdout for an empty path or "-", else creates the file.
func openSink(path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: os.Stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed) // #nosec G304 -- path comes from the user's --out flag
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// writeRendered writes rendered output to the --out target of cmd.
func writeRendered(cmd *cobra.Command, rendered string) error {
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer sink.close() // nolint:errcheck

	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, err = io.WriteString(sink.writer, rendered)
	return err
}
