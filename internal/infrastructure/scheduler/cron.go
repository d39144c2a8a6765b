package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"TopicScribe/internal/ports"
	"TopicScribe/pkg/logger"
)

// CronScheduler runs registered jobs on standard cron specs via robfig/cron.
type CronScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating specs in loc. A job that is still
// running when its next tick fires is skipped.
func NewCronScheduler(loc *time.Location, log *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	cronLog := logger.Cron(log)

	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger:  log.With("component", "scheduler"),
		now:     time.Now,
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds a named job. Names must be unique.
func (c *CronScheduler) Register(name, spec string, job func(time.Time)) error {
	if job == nil {
		return fmt.Errorf("register %s: nil job", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("register %s: already registered", name)
	}

	id, err := c.cron.AddFunc(spec, func() { job(c.now()) })
	if err != nil {
		return fmt.Errorf("register %s: invalid spec %q: %w", name, spec, err)
	}
	c.entries[name] = id

	c.logger.Info("job registered", "job", name, "spec", spec)
	return nil
}

// Next returns the next activation time of a registered job.
func (c *CronScheduler) Next(name string) (time.Time, bool) {
	c.mu.Lock()
	id, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	entry := c.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if entry.Next.IsZero() {
		return entry.Schedule.Next(c.now().In(c.cron.Location())), true
	}
	return entry.Next, true
}

// Start begins dispatching jobs in the background.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}
	c.cron.Start()
	c.started = true
	return nil
}

// Stop halts dispatching and waits for running jobs or ctx, whichever comes first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.mu.Unlock()

	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}
