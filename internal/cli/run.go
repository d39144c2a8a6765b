package cli

import (
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled service until interrupted",
		Long: `Start the recurring reconciliation cycle and the daily compilation, plus the
health endpoint when configured. SIGINT or SIGTERM stops the scheduler and
waits for running jobs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, opts)
		},
	}
}

func runService(cmd *cobra.Command, opts *RootOptions) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	svc, logger, err := opts.service(ctx, true)
	if err != nil {
		return err
	}
	defer closeService(svc, logger)

	if err := svc.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "service stopped with errors", err)
	}
	return nil
}
