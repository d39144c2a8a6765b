package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"TopicScribe/internal/domain"
	"TopicScribe/internal/logging"
	"TopicScribe/internal/ports"
)

const (
	defaultBatchSize       = 5
	defaultMaxTitleLength  = 150
	defaultMinContentChars = 500
	defaultChunkSize       = 95
	compilationPageSize    = 100
	maxHealthScore         = 100
	entryPenalty           = 10
	cyclePenalty           = 20
)

// Folder addresses an artifact folder by id, or by name when the id is empty.
type Folder struct {
	ID   string
	Name string
}

// Settings tunes the engine. Zero values fall back to the documented defaults.
type Settings struct {
	DailyDB      string
	CategoryDB   string
	RegistryPage string

	TopicsFolder   Folder
	DailyFolder    Folder
	CategoryFolder Folder

	BatchSize        int
	MaxTitleLength   int
	MinContentChars  int
	ChunkSize        int
	ChunkDelay       time.Duration
	CommitRetryDelay time.Duration

	TitlePrefix     string
	QuotaSource     string
	OperationName   string
	RunFrequency    string
	Model           string
	InputCostPerM   float64
	OutputCostPerM  float64
	SeedCategories  []string
	DefaultCategory string
	Location        *time.Location
}

// EngineDeps wires all driven adapters into the reconciliation engine.
type EngineDeps struct {
	Store     ports.RecordStore
	Generator ports.Generator
	Storage   ports.ArtifactStorage
	Ledger    ports.Ledger
	Notifier  ports.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
}

// Engine reconciles unprocessed topics into stored documents and owns the operational state.
type Engine struct {
	store     ports.RecordStore
	generator ports.Generator
	storage   ports.ArtifactStorage
	ledger    ports.Ledger
	notifier  ports.Notifier
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	settings Settings
	vocab    *Vocabulary

	// runMu serializes cycles, compilations and reconciliation.
	runMu sync.Mutex

	mu             sync.Mutex
	status         domain.OperationStatus
	healthScore    int
	cost           float64
	totalProcessed int
	lastRun        time.Time
}

type runIDKey struct{}

// NewEngine constructs the reconciliation engine.
func NewEngine(deps EngineDeps, settings Settings) *Engine {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepContext
	}

	if settings.BatchSize <= 0 {
		settings.BatchSize = defaultBatchSize
	}
	if settings.MaxTitleLength <= 0 {
		settings.MaxTitleLength = defaultMaxTitleLength
	}
	if settings.MinContentChars <= 0 {
		settings.MinContentChars = defaultMinContentChars
	}
	if settings.ChunkSize <= 0 {
		settings.ChunkSize = defaultChunkSize
	}
	if settings.DefaultCategory == "" {
		settings.DefaultCategory = "Esotericism"
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}

	return &Engine{
		store:       deps.Store,
		generator:   deps.Generator,
		storage:     deps.Storage,
		ledger:      deps.Ledger,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		now:         deps.Now,
		sleep:       deps.Sleep,
		settings:    settings,
		vocab:       NewVocabulary(settings.SeedCategories),
		status:      domain.StatusIdle,
		healthScore: maxHealthScore,
	}
}

// LoadCategories merges labels coined by earlier runs into the vocabulary.
func (e *Engine) LoadCategories(ctx context.Context) error {
	if e.ledger == nil {
		return nil
	}
	labels, err := e.ledger.Categories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	for _, label := range labels {
		e.vocab.Add(label)
	}
	return nil
}

// Vocabulary exposes the category labels known to the engine.
func (e *Engine) Vocabulary() []string {
	return e.vocab.Labels()
}

// RunCycle processes one batch of unprocessed topics.
func (e *Engine) RunCycle(ctx context.Context) error {
	if !e.runMu.TryLock() {
		return ErrCycleInProgress
	}
	defer e.runMu.Unlock()

	runID := uuid.NewString()
	ctx = context.WithValue(ctx, runIDKey{}, runID)
	logger := e.logger.With("run_id", runID)

	if err := e.transition(domain.StatusProcessing); err != nil {
		return err
	}
	e.mu.Lock()
	e.lastRun = e.now()
	e.mu.Unlock()

	logger.Info("starting reconciliation cycle")

	topics, err := e.store.QueryTopics(ctx, domain.TopicQuery{
		Unprocessed: true,
		PageSize:    e.settings.BatchSize,
		MaxResults:  e.settings.BatchSize,
	})
	if err != nil {
		e.failCycle()
		return fmt.Errorf("query unprocessed topics: %w", err)
	}

	if len(topics) == 0 {
		logger.Info("no unprocessed topics")
		return e.transition(domain.StatusIdle)
	}
	if len(topics) > e.settings.BatchSize {
		topics = topics[:e.settings.BatchSize]
	}

	logger.Info("processing topics", "count", len(topics))

	succeeded := 0
	for _, topic := range topics {
		if ctx.Err() != nil {
			logger.Warn("cycle interrupted", "error", ctx.Err())
			break
		}

		if err := e.ProcessTopic(ctx, topic); err != nil {
			e.penalize(entryPenalty)
			logger.Error("topic failed", "topic_id", topic.ID, "title", topic.Title, "error", err)
			continue
		}

		succeeded++
		e.mu.Lock()
		e.totalProcessed++
		e.mu.Unlock()
	}

	if err := e.transition(domain.StatusIdle); err != nil {
		return err
	}
	e.pushRegistry(ctx, logger)

	logger.Info("reconciliation cycle complete", "processed", succeeded, "failed", len(topics)-succeeded)
	return nil
}

// Health returns a point-in-time report of the engine state.
func (e *Engine) Health() domain.HealthReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lastRun *time.Time
	if !e.lastRun.IsZero() {
		t := e.lastRun
		lastRun = &t
	}

	return domain.HealthReport{
		Status:          domain.HealthStatus(e.healthScore),
		Operation:       e.settings.OperationName,
		LastRun:         lastRun,
		AccumulatedCost: roundCents(e.cost),
		TotalProcessed:  e.totalProcessed,
		HealthScore:     e.healthScore,
		OperationStatus: e.status,
	}
}

func (e *Engine) transition(next domain.OperationStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.status.Transition(next)
	if err != nil {
		return err
	}
	e.status = status
	return nil
}

func (e *Engine) failCycle() {
	if err := e.transition(domain.StatusError); err != nil {
		e.logger.Error("status transition", "error", err)
	}
	e.penalize(cyclePenalty)
}

func (e *Engine) penalize(points int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.healthScore = max(0, e.healthScore-points)
}

func (e *Engine) addCost(usage domain.Usage) float64 {
	cost := usage.Cost(e.settings.InputCostPerM, e.settings.OutputCostPerM)
	e.mu.Lock()
	e.cost += cost
	e.mu.Unlock()
	return cost
}

func (e *Engine) pushRegistry(ctx context.Context, logger *slog.Logger) {
	page := e.settings.RegistryPage
	if page == "" {
		return
	}

	if _, err := e.store.GetPage(ctx, page); err != nil {
		logger.Warn("registry page unavailable", "page_id", page, "error", err)
		return
	}

	e.mu.Lock()
	snapshot := domain.RegistrySnapshot{
		Status:         "Active",
		Model:          e.settings.Model,
		LastRun:        e.lastRun,
		Cost:           roundCents(e.cost),
		TotalProcessed: e.totalProcessed,
		HealthScore:    e.healthScore,
		RunFrequency:   e.settings.RunFrequency,
	}
	e.mu.Unlock()

	if err := e.store.UpdateRegistry(ctx, page, snapshot); err != nil {
		logger.Warn("registry update failed", "error", err)
		return
	}
	logger.Info("registry updated")
}

func (e *Engine) today() time.Time {
	now := e.now().In(e.settings.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.settings.Location)
}

func runIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
