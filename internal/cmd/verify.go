package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/core"
	"github.com/mxprobe/mxprobe/internal/core/engine"
	"github.com/mxprobe/mxprobe/internal/core/store"
	errwrap "github.com/mxprobe/mxprobe/internal/errors"
	"github.com/mxprobe/mxprobe/internal/observability"
	"github.com/mxprobe/mxprobe/internal/output"
	"github.com/mxprobe/mxprobe/internal/tabular"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify every address in a CSV file",
	Long: `Verify every address in the address column of a CSV file.

Results are written back into the file (or --out) as extra columns every
--checkpoint-every addresses and once more when the batch finishes. Runs are
also recorded in the local store unless --no-store is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

// verifyFlagKeys maps verify flags to the config keys they override.
var verifyFlagKeys = map[string]string{
	"concurrency":      "verify.concurrency",
	"checkpoint-every": "verify.checkpoint_every",
	"column":           "verify.column",
	"timeout":          "verify.timeout",
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Int("concurrency", engine.DefaultConcurrency, "Number of concurrent workers")
	verifyCmd.Flags().Int("checkpoint-every", engine.DefaultCheckpointEvery, "Persist results every N addresses")
	verifyCmd.Flags().String("column", "email", "Name of the address column")
	verifyCmd.Flags().Duration("timeout", 10*time.Second, "Timeout for each DNS lookup and SMTP connect")
	verifyCmd.Flags().String("out", "", "Write the annotated CSV here instead of updating the input")
	verifyCmd.Flags().Bool("no-store", false, "Do not record the run in the local store")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runID := observability.NewRunID()
	ctx = observability.WithRunID(ctx, runID)

	overrides := flagOverrides(cmd, verifyFlagKeys)
	if noStore, _ := cmd.Flags().GetBool("no-store"); noStore {
		overrides["store"] = map[string]any{"enabled": false}
	}
	cfg, err := loadConfig(ctx, overrides)
	if err != nil {
		return err
	}

	inputPath := strings.TrimSpace(args[0])
	table, err := tabular.ReadFile(inputPath)
	if err != nil {
		return errwrap.WrapInvalidInput(ctx, err, "read input file")
	}
	addresses, err := table.Addresses(cfg.Verify.Column)
	if err != nil {
		return errwrap.WrapInvalidInput(ctx, err, fmt.Sprintf("address column %q not found", cfg.Verify.Column))
	}

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	if strings.TrimSpace(outPath) == "" {
		outPath = inputPath
	}

	validator, limiter, err := buildValidator(cfg)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "build provider catalog")
	}

	checkpointers := []engine.Checkpointer{&tabular.Sink{Table: table, Path: outPath}}

	db, err := openStore(ctx, cfg.Store)
	switch {
	case errors.Is(err, store.ErrDisabled):
		observability.CLILogger.Debug("Store disabled, run will not be recorded")
	case err != nil:
		return err
	default:
		defer db.Close() // nolint:errcheck
		if err := db.StartRun(ctx, runID, inputPath, len(addresses), time.Now()); err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "record run start")
		}
		checkpointers = append(checkpointers, &store.RunSink{Store: db, RunID: runID})
	}

	printBanner(inputPath, outPath, len(addresses), cfg.Verify.Concurrency, runID)
	observability.CLILogger.Info(output.ProgressHeader())
	observability.CLILogger.Info(output.ProgressRule())

	completed := 0
	orchestrator := &engine.Orchestrator{Validator: validator}
	summary, runErr := orchestrator.Run(ctx, addresses, engine.BatchOptions{
		Concurrency:     cfg.Verify.Concurrency,
		CheckpointEvery: cfg.Verify.CheckpointEvery,
		Checkpoint:      fanOut(checkpointers...),
		OnResult: func(result *core.CheckResult) {
			completed++
			observability.CLILogger.Info(output.FormatProgressLine(result))
			if completed%cfg.Verify.CheckpointEvery == 0 {
				observability.CLILogger.Info(output.FormatCheckpointLine(completed, len(addresses)))
			}
		},
	})
	if summary == nil {
		return errwrap.WrapInternal(ctx, runErr, "verification failed")
	}
	domains, providers := limiter.Tracked()
	observability.CLILogger.Debug("Gate state",
		zap.String("run_id", runID),
		zap.Int("domains", domains),
		zap.Int("providers", providers))

	if db != nil {
		status := core.RunStatusComplete
		if runErr != nil {
			status = core.RunStatusFailed
		}
		if err := db.FinishRun(ctx, summary, status); err != nil {
			errwrap.Report(errwrap.WrapDatabaseError(ctx, err, "record run completion"))
		}
	}

	rendered, err := output.NewFormatter(output.FormatTable).FormatSummary(summary)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, rendered)

	if runErr != nil {
		return errwrap.WrapDataProcessing(ctx, runErr, "save results")
	}
	observability.CLILogger.Info("Results saved to "+outPath, zap.String("run_id", runID))
	return nil
}

// fanOut persists to every checkpointer and joins their errors.
func fanOut(checkpointers ...engine.Checkpointer) engine.Checkpointer {
	return engine.CheckpointFunc(func(ctx context.Context, results []*core.CheckResult) error {
		var errs []error
		for _, c := range checkpointers {
			if err := c.Persist(ctx, results); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

func printBanner(input, out string, total, concurrency int, runID string) {
	lines := []string{
		"Email Verification",
		"",
		"Input:       " + input,
		"Output:      " + out,
		fmt.Sprintf("Addresses:   %d", total),
		fmt.Sprintf("Workers:     %d", concurrency),
		"Run:         " + runID,
	}
	_, _ = fmt.Fprint(os.Stdout, ascii.DrawBox(strings.Join(lines, "\n"), 0))
}
