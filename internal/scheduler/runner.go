// Package scheduler triggers the auto-checkout policy on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AutoCheckoutRunner closes stale movements across every site.
type AutoCheckoutRunner interface {
	RunAutoCheckoutAllSites(ctx context.Context, thresholdHours float64) (int, error)
}

// RunObserver is notified after each run.
type RunObserver interface {
	ObserveAutoCheckoutRun(err error)
}

// Config configures a Runner.
type Config struct {
	Interval       time.Duration
	ThresholdHours float64
	// RunAtStart triggers one run before the first tick.
	RunAtStart bool
}

// Runner periodically invokes the auto-checkout policy.
type Runner struct {
	checkout AutoCheckoutRunner
	observer RunObserver
	config   Config
	logger   *slog.Logger
}

// NewRunner builds a Runner. observer may be nil.
func NewRunner(checkout AutoCheckoutRunner, observer RunObserver, config Config, logger *slog.Logger) (*Runner, error) {
	if checkout == nil {
		return nil, errors.New("scheduler: auto-checkout runner is required")
	}
	if config.Interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	if config.ThresholdHours <= 0 {
		return nil, errors.New("scheduler: threshold must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		checkout: checkout,
		observer: observer,
		config:   config,
		logger:   logger.With("component", "scheduler", "job", "auto_checkout"),
	}, nil
}

// Run blocks until ctx is cancelled. Failed runs are logged and retried on the
// next tick.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "auto-checkout scheduler started",
		"interval", r.config.Interval.String(),
		"threshold_hours", r.config.ThresholdHours,
	)

	if r.config.RunAtStart {
		r.runOnce(ctx)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "auto-checkout scheduler stopped")
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	started := time.Now()
	closed, err := r.checkout.RunAutoCheckoutAllSites(ctx, r.config.ThresholdHours)
	if r.observer != nil {
		r.observer.ObserveAutoCheckoutRun(err)
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.ErrorContext(ctx, "auto-checkout run failed",
			"error", err,
			"closed", closed,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return
	}
	if closed > 0 {
		r.logger.InfoContext(ctx, "auto-checkout run completed",
			"closed", closed,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return
	}
	r.logger.DebugContext(ctx, "auto-checkout run found nothing to close")
}
