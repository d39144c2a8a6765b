package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHealthCommand prints a one-shot health snapshot.
func NewHealthCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Print a health snapshot and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			report := svc.Health()
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderHealth(report))
			return err
		},
	}
}
