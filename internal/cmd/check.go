package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/observability"
	"github.com/mxprobe/mxprobe/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check <address>",
	Short: "Verify a single address",
	Long:  "Check syntax, MX records and SMTP reachability of one address without touching the store.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table, json, markdown")
	checkCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	checkCmd.Flags().Duration("timeout", 0, "Timeout for the DNS lookup and SMTP connect")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = observability.WithRunID(ctx, observability.NewRunID())

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, flagOverrides(cmd, map[string]string{"timeout": "verify.timeout"}))
	if err != nil {
		return err
	}

	validator, _, err := buildValidator(cfg)
	if err != nil {
		return err
	}

	result := validator.Validate(ctx, args[0])
	observability.CLILogger.Debug("Check complete",
		zap.String("address", result.Address),
		zap.Bool("valid", result.OverallValid),
		zap.Int64("elapsed_ms", result.ElapsedMillis))

	rendered, err := output.NewFormatter(format).FormatResult(result)
	if err != nil {
		return err
	}
	return writeRendered(cmd, rendered)
}
