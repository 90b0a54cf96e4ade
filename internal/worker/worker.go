// Package worker drives periodic catalog refreshes. The orchestrator
// never retries on its own; this loop is the caller that re-triggers
// when the catalog is empty or has aged past the staleness threshold.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cheapnut/cheapnut/internal/model"
	"github.com/cheapnut/cheapnut/internal/refresh"
)

// Refresher is the slice of the orchestrator the scheduler needs.
type Refresher interface {
	Trigger(ctx context.Context, sources ...string) (*model.RefreshJob, bool, error)
	StalenessSummary(ctx context.Context) (refresh.StalenessSummary, error)
}

// Scheduler polls catalog staleness and triggers refreshes.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
}

// New creates a Scheduler.
func New(refresher Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{refresher: refresher, interval: interval}
}

// Start begins the polling loop. It blocks until ctx is cancelled. The
// first check runs immediately so a fresh deployment fills its catalog
// without waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("refresh scheduler started", "interval", s.interval.String())
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			slog.Info("refresh scheduler stopped")
			return
		case <-time.After(s.interval):
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	summary, err := s.refresher.StalenessSummary(ctx)
	if err != nil {
		slog.Error("staleness check failed", "error", err)
		return
	}
	if summary.Total > 0 && summary.Stale == 0 {
		return
	}

	job, coalesced, err := s.refresher.Trigger(ctx)
	if err != nil {
		slog.Error("scheduled refresh failed to start", "error", err)
		return
	}
	if coalesced {
		slog.Info("scheduled refresh attached to running job", "job_id", job.JobID)
		return
	}
	slog.Info("scheduled refresh started",
		"job_id", job.JobID, "total", summary.Total, "stale", summary.Stale)
}
