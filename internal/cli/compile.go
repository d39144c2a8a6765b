package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewCompileCommand groups the on-demand compilations.
func NewCompileCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Publish a compilation document now",
	}
	cmd.AddCommand(newCompileDailyCommand(opts))
	cmd.AddCommand(newCompileCategoryCommand(opts))
	return cmd
}

func newCompileDailyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Compile every topic processed today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			svc, logger, err := opts.service(ctx, true)
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			if err := svc.CompileDaily(ctx); err != nil {
				return WrapExitError(ExitFailure, "daily compilation failed", err)
			}
			return printResult(cmd, opts, map[string]any{"compilation": "daily", "status": "ok"}, "daily compilation published")
		},
	}
}

func newCompileCategoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "category <label>",
		Short: "Compile the processed, not yet compiled topics of one category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.TrimSpace(args[0])
			if label == "" {
				return WrapExitError(ExitCommandError, "category label is empty", nil)
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			svc, logger, err := opts.service(ctx, true)
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			if err := svc.CompileCategory(ctx, label); err != nil {
				return WrapExitError(ExitFailure, fmt.Sprintf("category compilation %q failed", label), err)
			}
			return printResult(cmd, opts, map[string]any{"compilation": "category", "category": label, "status": "ok"},
				fmt.Sprintf("category compilation %q published", label))
		},
	}
}

func printResult(cmd *cobra.Command, opts *RootOptions, data any, text string) error {
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), data)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
