package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"TopicScribe/internal/config"
	"TopicScribe/internal/domain"
	"TopicScribe/internal/infrastructure/artifacts"
	"TopicScribe/internal/infrastructure/httpapi"
	"TopicScribe/internal/infrastructure/llm"
	"TopicScribe/internal/infrastructure/notion"
	"TopicScribe/internal/infrastructure/scheduler"
	"TopicScribe/internal/infrastructure/storage"
	"TopicScribe/internal/infrastructure/telegram"
	"TopicScribe/internal/logging"
	"TopicScribe/internal/ports"
	"TopicScribe/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	engine    *usecase.Engine
	scheduler *usecase.Scheduler
	health    *httpapi.Server
	ledger    *storage.SQLLedger
}

// New builds the adapters and the engine. The ledger, the notifier and the health
// listener are optional and skipped when not configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store := notion.NewClient(cfg.Notion)
	generator := llm.NewAnthropicClient(cfg.Anthropic, baseLogger)

	objects, err := artifacts.NewStore(cfg.Storage, baseLogger)
	if err != nil {
		return nil, fmt.Errorf("init artifact storage: %w", err)
	}

	app := &Application{cfg: cfg, logger: baseLogger}

	var ledger ports.Ledger
	if cfg.Ledger.Driver != "" {
		sqlLedger, err := storage.Open(ctx, cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		app.ledger = sqlLedger
		ledger = sqlLedger
	}

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Telegram); tg.Enabled() {
		notifier = tg
	}

	app.engine = usecase.NewEngine(usecase.EngineDeps{
		Store:     store,
		Generator: generator,
		Storage:   objects,
		Ledger:    ledger,
		Notifier:  notifier,
		Logger:    baseLogger.With("component", "engine"),
	}, settingsFrom(cfg))

	driver := scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger)
	app.scheduler = usecase.NewScheduler(driver, app.engine, usecase.Schedule{
		Cycle: cfg.Scheduler.CycleSpec,
		Daily: cfg.Scheduler.DailySpec,
	}, baseLogger.With("component", "scheduler"))

	if cfg.Health.Addr != "" {
		app.health = httpapi.NewServer(cfg.Health.Addr, app.engine, baseLogger)
	}

	return app, nil
}

func settingsFrom(cfg config.Config) usecase.Settings {
	folders := cfg.Storage.Folders
	return usecase.Settings{
		DailyDB:      cfg.Notion.DailyDB,
		CategoryDB:   cfg.Notion.CategoryDB,
		RegistryPage: cfg.Notion.RegistryPage,

		TopicsFolder:   usecase.Folder{ID: folders.Topics.ID, Name: folders.Topics.Name},
		DailyFolder:    usecase.Folder{ID: folders.Daily.ID, Name: folders.Daily.Name},
		CategoryFolder: usecase.Folder{ID: folders.Category.ID, Name: folders.Category.Name},

		BatchSize:        cfg.Pipeline.BatchSize,
		MaxTitleLength:   cfg.Pipeline.MaxTitleLength,
		MinContentChars:  cfg.Pipeline.MinContentChars,
		ChunkSize:        cfg.Pipeline.ChunkSize,
		ChunkDelay:       cfg.Pipeline.ChunkDelay,
		CommitRetryDelay: cfg.Pipeline.CommitRetryDelay,

		TitlePrefix:     cfg.Pipeline.TitlePrefix,
		QuotaSource:     cfg.Pipeline.QuotaSource,
		OperationName:   cfg.Pipeline.OperationName,
		RunFrequency:    cfg.Pipeline.RunFrequency,
		Model:           cfg.Anthropic.Model,
		InputCostPerM:   cfg.Anthropic.InputCostPerM,
		OutputCostPerM:  cfg.Anthropic.OutputCostPerM,
		SeedCategories:  cfg.Categories.Seed,
		DefaultCategory: cfg.Categories.Default,
		Location:        cfg.Scheduler.Location(),
	}
}

// Run starts the recurring jobs and the health listener, then blocks until ctx is
// cancelled. Running jobs are allowed to finish before Run returns.
func (a *Application) Run(ctx context.Context) error {
	a.loadCategories(ctx)

	if a.health != nil {
		if err := a.health.Start(); err != nil {
			return err
		}
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("service started",
		"cycle", a.cfg.Scheduler.CycleSpec,
		"daily", a.cfg.Scheduler.DailySpec,
		"timezone", a.cfg.Scheduler.Location().String(),
	)

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if a.health != nil {
		if err := a.health.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Health returns the engine snapshot.
func (a *Application) Health() domain.HealthReport {
	return a.engine.Health()
}

// CompileDaily runs the daily compilation once.
func (a *Application) CompileDaily(ctx context.Context) error {
	return a.engine.CompileDaily(ctx)
}

// CompileCategory runs one category compilation.
func (a *Application) CompileCategory(ctx context.Context, label string) error {
	a.loadCategories(ctx)
	return a.engine.CompileCategory(ctx, label)
}

// Reconcile replays commits left pending by earlier runs.
func (a *Application) Reconcile(ctx context.Context) (usecase.ReconcileResult, error) {
	return a.engine.Reconcile(ctx)
}

// Close releases the ledger connection.
func (a *Application) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}

func (a *Application) loadCategories(ctx context.Context) {
	if err := a.engine.LoadCategories(ctx); err != nil {
		a.logger.Warn("load persisted categories", "error", err)
	}
}

// Categories returns the labels known to the engine, including persisted ones.
func (a *Application) Categories(ctx context.Context) []string {
	a.loadCategories(ctx)
	return a.engine.Vocabulary()
}
