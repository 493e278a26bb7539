package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mxprobe/mxprobe/internal/core/store"
	errwrap "github.com/mxprobe/mxprobe/internal/errors"
	"github.com/mxprobe/mxprobe/internal/output"
)

var resultsCmd = &cobra.Command{
	Use:   "results [run-id]",
	Short: "Show stored verification runs",
	Long: `Without arguments, list the most recent runs recorded in the store.
With a run id, print every stored result of that run in input order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	resultsCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table, json, markdown")
	resultsCmd.Flags().String("out", "", "Write output to a file (default stdout)")
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, nil)
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg.Store)
	if errors.Is(err, store.ErrDisabled) {
		return errwrap.WrapConfigInvalid(ctx, err, "results need store.enabled")
	}
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck

	formatter := output.NewFormatter(format)

	if len(args) == 0 {
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "list runs")
		}
		rendered, err := formatter.FormatRuns(runs)
		if err != nil {
			return err
		}
		return writeRendered(cmd, rendered)
	}

	runID := strings.TrimSpace(args[0])
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return errwrap.WrapDatabaseError(ctx, err, "load run")
	}
	if run == nil {
		return errwrap.NewInvalidInputError(fmt.Sprintf("run %s not found", runID))
	}

	results, err := db.ListResults(ctx, runID)
	if err != nil {
		return errwrap.WrapDatabaseError(ctx, err, "list results")
	}
	rendered, err := formatter.FormatResults(results)
	if err != nil {
		return err
	}
	return writeRendered(cmd, rendered)
}
