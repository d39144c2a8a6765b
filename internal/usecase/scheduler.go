package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"TopicScribe/internal/logging"
	"TopicScribe/internal/ports"
)

const (
	cycleJobName = "reconciliation-cycle"
	dailyJobName = "daily-compilation"
)

// Schedule holds the cron specs of the recurring jobs. An empty daily spec disables the job.
type Schedule struct {
	Cycle string
	Daily string
}

// Scheduler wires the cron-like driver with the engine jobs.
type Scheduler struct {
	driver   ports.Scheduler
	engine   *Engine
	schedule Schedule
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, engine *Engine, schedule Schedule, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, engine: engine, schedule: schedule, logger: logger}
}

// Start registers the engine jobs with the provided scheduler. Jobs run detached from
// ctx cancellation so an in-flight job completes during shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.engine == nil {
		return nil
	}

	jobCtx := context.WithoutCancel(ctx)

	cycle := func(trigger time.Time) {
		err := s.engine.RunCycle(jobCtx)
		switch {
		case errors.Is(err, ErrCycleInProgress):
			s.logger.Debug("cycle skipped, previous still running", "trigger", trigger)
		case err != nil:
			s.logger.Error("reconciliation cycle failed", "trigger", trigger, "error", err)
		}
	}
	if err := s.driver.Register(cycleJobName, s.schedule.Cycle, cycle); err != nil {
		return err
	}

	if s.schedule.Daily != "" {
		daily := func(trigger time.Time) {
			if err := s.engine.CompileDaily(jobCtx); err != nil {
				s.logger.Error("daily compilation failed", "trigger", trigger, "error", err)
			}
		}
		if err := s.driver.Register(dailyJobName, s.schedule.Daily, daily); err != nil {
			return err
		}
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
