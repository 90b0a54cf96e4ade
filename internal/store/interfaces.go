package store

import (
	"context"
	"time"

	"github.com/cheapnut/cheapnut/internal/model"
)

// Metric names accepted by TopByMetric.
const (
	MetricProtein  = "protein"
	MetricCalories = "calories"
	MetricPrice    = "price"
)

// StaleCounts summarizes catalog freshness for operational tooling.
type StaleCounts struct {
	Total        int        `json:"total"`
	Stale        int        `json:"stale"`
	OldestUpdate *time.Time `json:"oldest_update,omitempty"`
}

// CatalogReader provides read access to catalog items. Search, the
// leaderboard and the comparator depend on this interface only, so they
// hold no mutation rights by construction.
type CatalogReader interface {
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context, category model.Category) ([]model.Item, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Item, error)
	TopByMetric(ctx context.Context, metric string, limit int) ([]model.Item, error)
	StaleCounts(ctx context.Context, cutoff time.Time) (StaleCounts, error)
}

// CatalogWriter provides write access to catalog items. The refresh
// orchestrator is its only consumer.
type CatalogWriter interface {
	UpsertItem(ctx context.Context, item model.Item) (*model.Item, error)
}

// JobStore persists refresh job records for auditing.
type JobStore interface {
	CreateJob(ctx context.Context, job model.RefreshJob) error
	FinishJob(ctx context.Context, job model.RefreshJob) error
	GetJob(ctx context.Context, id string) (*model.RefreshJob, error)
	ListJobs(ctx context.Context, limit int) ([]model.RefreshJob, error)
}
