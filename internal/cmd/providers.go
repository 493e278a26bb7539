package cmd

import (
	"context"

	"github.com/spf13/cobra"

	errwrap "github.com/mxprobe/mxprobe/internal/errors"
	"github.com/mxprobe/mxprobe/internal/output"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List mail providers and their probe intervals",
	Long:  "List the effective provider catalog: built-in providers with the catalog file and config overrides applied.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ctx, nil)
		if err != nil {
			return err
		}
		catalog, err := buildCatalog(cfg.Limits)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "load provider catalog")
		}

		rendered, err := output.NewFormatter(format).FormatProviders(catalog.Entries())
		if err != nil {
			return err
		}
		return writeRendered(cmd, rendered)
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)

	providersCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table, json, markdown")
	providersCmd.Flags().String("out", "", "Write output to a file (default stdout)")
}
