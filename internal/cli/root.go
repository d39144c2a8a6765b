package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"TopicScribe/internal/config"
	"TopicScribe/internal/domain"
	"TopicScribe/internal/logging"
	"TopicScribe/internal/usecase"
)

// Service is the application surface driven by the commands.
type Service interface {
	Run(ctx context.Context) error
	Health() domain.HealthReport
	CompileDaily(ctx context.Context) error
	CompileCategory(ctx context.Context, label string) error
	Reconcile(ctx context.Context) (usecase.ReconcileResult, error)
	Categories(ctx context.Context) []string
	Close() error
}

// Builder constructs the service from loaded configuration.
type Builder func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Service, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	Format   string

	build     Builder
	loadCfg   func() config.Config
	newLogger func(cfg config.Config) *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the topicscribe command tree. Without a subcommand it runs the service.
func NewRootCommand(build Builder) *cobra.Command {
	return newRootCommand(&RootOptions{
		build:   build,
		loadCfg: config.Load,
		newLogger: func(cfg config.Config) *slog.Logger {
			return logging.New(cfg.Logging.Level, cfg.Logging.Format)
		},
	})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topicscribe",
		Short: "Turns queued topics into published documents",
		Long: `topicscribe watches a topics database, generates a long-form document for
each unprocessed topic, stores it as a .docx artifact and commits the link
back to the record. Daily and per-category compilations are published on
their own schedule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewHealthCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// service loads configuration and builds the application. validate rejects
// configurations that cannot reach the external services.
func (o *RootOptions) service(ctx context.Context, validate bool) (Service, *slog.Logger, error) {
	cfg := o.loadCfg()
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
		}
	}

	logger := o.newLogger(cfg)
	svc, err := o.build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "initialize application", err)
	}
	return svc, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func closeService(svc Service, logger *slog.Logger) {
	if err := svc.Close(); err != nil {
		logger.Warn("close application", "error", err)
	}
}
