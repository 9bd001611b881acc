// Package retention prunes old diagram history on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/codeflow/internal/store"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultSchedule = "@hourly"
	DefaultMaxAge   = 720 * time.Hour
)

// Pruner is the part of store.Store the retention job needs.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (store.PruneResult, error)
	Vacuum(ctx context.Context) error
}

// Config controls the retention job. MaxAge 0 disables pruning.
type Config struct {
	MaxAge   time.Duration
	Schedule string
}

// Retention runs PruneBefore(now - MaxAge) on a cron schedule.
type Retention struct {
	store    Pruner
	maxAge   time.Duration
	schedule string
	parser   cron.Parser
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a Retention job. The schedule is validated here so a bad
// expression fails at startup.
func New(s Pruner, cfg Config, logger *slog.Logger) (*Retention, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.MaxAge < 0 {
		return nil, fmt.Errorf("retention max age must not be negative, got %s", cfg.MaxAge)
	}

	r := &Retention{
		store:    s,
		maxAge:   cfg.MaxAge,
		schedule: cfg.Schedule,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if _, err := r.parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parse retention schedule %q: %w", cfg.Schedule, err)
	}
	return r, nil
}

// Enabled reports whether pruning is configured.
func (r *Retention) Enabled() bool { return r.maxAge > 0 }

// Start registers the prune job and starts the cron runner. Overlapping runs
// are skipped. It is a no-op when pruning is disabled.
func (r *Retention) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return fmt.Errorf("retention already started")
	}
	if !r.Enabled() {
		r.logger.Info("retention disabled")
		return nil
	}

	c := cron.New(
		cron.WithParser(r.parser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("retention run failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("schedule retention: %w", err)
	}
	c.Start()
	r.cron = c

	r.logger.Info("retention started",
		slog.String("schedule", r.schedule),
		slog.Duration("max_age", r.maxAge),
	)
	return nil
}

// Stop stops the cron runner and waits for a running prune to finish.
func (r *Retention) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
	r.logger.Info("retention stopped")
}

// RunOnce prunes everything older than MaxAge and vacuums when rows were removed.
func (r *Retention) RunOnce(ctx context.Context) (store.PruneResult, error) {
	if !r.Enabled() {
		return store.PruneResult{}, nil
	}

	cutoff := r.now().Add(-r.maxAge)
	res, err := r.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("prune before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if res.Diagrams > 0 || res.Events > 0 {
		if err := r.store.Vacuum(ctx); err != nil {
			r.logger.Warn("vacuum after prune failed", slog.String("error", err.Error()))
		}
		r.logger.Info("history pruned",
			slog.Int64("diagrams", res.Diagrams),
			slog.Int64("events", res.Events),
			slog.Time("cutoff", cutoff),
		)
	}
	return res, nil
}

// NextRun returns the first scheduled run after from.
func (r *Retention) NextRun(from time.Time) time.Time {
	schedule, err := r.parser.Parse(r.schedule)
	if err != nil {
		return time.Time{}
	}
	return schedule.Next(from)
}
