package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewReconcileCommand replays commits left pending in the ledger.
func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Replay record updates for artifacts that were stored but never committed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			svc, logger, err := opts.service(ctx, true)
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			result, err := svc.Reconcile(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "reconcile failed", err)
			}

			data := map[string]int{"pending": result.Pending, "resolved": result.Resolved}
			if err := printResult(cmd, opts, data, fmt.Sprintf("resolved %d of %d pending commits", result.Resolved, result.Pending)); err != nil {
				return err
			}
			if result.Resolved < result.Pending {
				return WrapExitError(ExitFailure, fmt.Sprintf("%d commits still pending", result.Pending-result.Resolved), nil)
			}
			return nil
		},
	}
}

// NewCategoriesCommand lists the category vocabulary.
func NewCategoriesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the known category labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			labels := svc.Categories(cmd.Context())
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), labels)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(labels, "\n"))
			return err
		},
	}
}
