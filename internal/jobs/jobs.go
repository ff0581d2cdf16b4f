// Package jobs runs the service's background maintenance on a cron
// schedule: expired-session cleanup, rate-limit table pruning, and the
// nightly sequence rollover.
package jobs

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/famstack/famcoin/internal/middleware"
	"github.com/famstack/famcoin/internal/scheduler"
	"github.com/famstack/famcoin/internal/store"
)

type Runner struct {
	cron      *cron.Cron
	sessions  *store.SessionStore
	limiter   *middleware.RateLimiter
	scheduler *scheduler.Service
	logger    *slog.Logger
}

func NewRunner(sessions *store.SessionStore, limiter *middleware.RateLimiter, sched *scheduler.Service, logger *slog.Logger) *Runner {
	return &Runner{
		cron:      cron.New(),
		sessions:  sessions,
		limiter:   limiter,
		scheduler: sched,
		logger:    logger,
	}
}

// Start registers the schedules and starts the cron loop.
func (r *Runner) Start() {
	// Expired child sessions, hourly. Dev sessions are exempt.
	r.cron.AddFunc("@hourly", func() {
		n, err := r.sessions.DeleteExpired()
		if err != nil {
			r.logger.Error("session cleanup", "error", err)
			return
		}
		if n > 0 {
			r.logger.Info("expired sessions removed", "count", n)
		}
	})

	// Stale rate-limit entries, every 10 minutes.
	r.cron.AddFunc("@every 10m", func() {
		r.limiter.Cleanup()
	})

	// Sequence rollover shortly after midnight, so a period ending
	// yesterday is closed before children check their tasks.
	r.cron.AddFunc("5 0 * * *", func() {
		if err := r.scheduler.Rollover(); err != nil {
			r.logger.Error("sequence rollover", "error", err)
		}
	})

	r.cron.Start()
	r.logger.Info("background jobs started")
}

// Stop halts the cron loop and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
