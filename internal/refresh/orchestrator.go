// Package refresh runs scraping jobs against the configured sources and
// is the only writer into the catalog. Fetches for distinct sources run
// concurrently under per-source timeouts; a failing source never takes
// its siblings down, and a source that is already being refreshed is
// coalesced into the in-flight job instead of fetched twice.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cheapnut/cheapnut/internal/model"
	"github.com/cheapnut/cheapnut/internal/scrape"
	"github.com/cheapnut/cheapnut/internal/store"
)

// Options configures an Orchestrator.
type Options struct {
	// SourceTimeout bounds each source fetch. Zero means 20s.
	SourceTimeout time.Duration
	// StalenessThreshold is the age past which an item counts as stale.
	// Zero means 6h.
	StalenessThreshold time.Duration
	// Nutrition, when set, fills in missing nutrition facts for scraped
	// records before they are written. Lookup failures are logged and
	// ignored; they are never source failures.
	Nutrition scrape.NutritionLookup
}

// Orchestrator owns the refresh pipeline.
type Orchestrator struct {
	writer    store.CatalogWriter
	reader    store.CatalogReader
	jobs      store.JobStore
	fetchers  map[string]scrape.Fetcher
	nutrition scrape.NutritionLookup
	timeout   time.Duration
	staleAge  time.Duration

	mu      sync.Mutex
	running map[string]*inflight // source name → job currently covering it
}

// inflight tracks one live job. done is closed when the job reaches a
// terminal status.
type inflight struct {
	jobID string
	done  chan struct{}
}

// New creates an Orchestrator over the given fetchers.
func New(writer store.CatalogWriter, reader store.CatalogReader, jobs store.JobStore, fetchers []scrape.Fetcher, opts Options) *Orchestrator {
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 20 * time.Second
	}
	if opts.StalenessThreshold <= 0 {
		opts.StalenessThreshold = 6 * time.Hour
	}
	byName := make(map[string]scrape.Fetcher, len(fetchers))
	for _, f := range fetchers {
		byName[f.Name()] = f
	}
	return &Orchestrator{
		writer:    writer,
		reader:    reader,
		jobs:      jobs,
		fetchers:  byName,
		nutrition: opts.Nutrition,
		timeout:   opts.SourceTimeout,
		staleAge:  opts.StalenessThreshold,
		running:   make(map[string]*inflight),
	}
}

// Sources returns the configured source names, sorted.
func (o *Orchestrator) Sources() []string {
	names := make([]string, 0, len(o.fetchers))
	for name := range o.fetchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trigger starts a refresh covering the given sources (all configured
// sources when none are named) and returns immediately with the job
// record. When every requested source is already covered by a running
// job, no new job starts: the in-flight one is returned with coalesced
// set. Sources not already running are batched into one new job.
func (o *Orchestrator) Trigger(ctx context.Context, sources ...string) (*model.RefreshJob, bool, error) {
	if len(sources) == 0 {
		sources = o.Sources()
	}
	for _, name := range sources {
		if _, ok := o.fetchers[name]; !ok {
			return nil, false, fmt.Errorf("unknown source %q", name)
		}
	}
	if len(sources) == 0 {
		return nil, false, errors.New("no sources configured")
	}

	o.mu.Lock()
	var pending []string
	for _, name := range sources {
		if _, busy := o.running[name]; !busy {
			pending = append(pending, name)
		}
	}

	if len(pending) == 0 {
		// Everything requested is already in flight; attach to that job.
		jobID := o.running[sources[0]].jobID
		o.mu.Unlock()
		job, err := o.jobs.GetJob(ctx, jobID)
		if err != nil {
			return nil, false, fmt.Errorf("load coalesced job: %w", err)
		}
		return job, true, nil
	}

	job := model.RefreshJob{
		JobID:            uuid.New().String(),
		Sources:          pending,
		StartedAt:        time.Now().UTC(),
		Status:           model.JobRunning,
		SourcesAttempted: len(pending),
	}
	fl := &inflight{jobID: job.JobID, done: make(chan struct{})}
	for _, name := range pending {
		o.running[name] = fl
	}
	o.mu.Unlock()

	if err := o.jobs.CreateJob(ctx, job); err != nil {
		o.release(pending, fl)
		return nil, false, fmt.Errorf("create job: %w", err)
	}

	// The job outlives the triggering request.
	go o.run(context.WithoutCancel(ctx), job, fl)

	return &job, false, nil
}

// run fetches all sources of one job concurrently, waits for every one
// of them, and resolves the terminal status.
func (o *Orchestrator) run(ctx context.Context, job model.RefreshJob, fl *inflight) {
	defer o.release(job.Sources, fl)

	var succeeded, written atomic.Int64
	var g errgroup.Group

	for _, name := range job.Sources {
		fetcher := o.fetchers[name]
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			records, err := fetcher.Fetch(srcCtx)
			if err != nil {
				srcErr := &model.SourceError{Source: name, Err: err}
				slog.Error("source fetch failed", "job_id", job.JobID, "source", name, "error", srcErr)
				return nil // failure is aggregated, siblings keep going
			}

			written.Add(int64(o.writeRecords(srcCtx, job.JobID, name, records)))
			succeeded.Add(1)
			return nil
		})
	}
	g.Wait()

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	job.SourcesSucceeded = int(succeeded.Load())
	job.ItemsWritten = int(written.Load())
	job.Status = model.ResolveStatus(job.SourcesAttempted, job.SourcesSucceeded)

	if err := o.jobs.FinishJob(ctx, job); err != nil {
		slog.Error("finish job failed", "job_id", job.JobID, "error", err)
	}
	slog.Info("refresh job finished",
		"job_id", job.JobID,
		"status", job.Status,
		"sources_succeeded", job.SourcesSucceeded,
		"sources_attempted", job.SourcesAttempted,
		"items_written", job.ItemsWritten,
	)
}

// writeRecords validates, enriches and upserts one source's records.
// A record failing validation is logged and skipped; the rest of the
// batch continues.
func (o *Orchestrator) writeRecords(ctx context.Context, jobID, source string, records []scrape.Record) int {
	written := 0
	for _, rec := range records {
		item := o.buildItem(ctx, rec)
		if _, err := o.writer.UpsertItem(ctx, item); err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				slog.Warn("skipping invalid record", "job_id", jobID, "source", source, "name", rec.Name, "error", verr)
				continue
			}
			slog.Error("upsert failed", "job_id", jobID, "source", source, "item_id", item.ID, "error", err)
			continue
		}
		written++
	}
	return written
}

// buildItem converts a raw record to a catalog item, enriching missing
// nutrition when a lookup service is configured and the item's weight
// is known (per-100g facts cannot be scaled onto an unweighed unit).
func (o *Orchestrator) buildItem(ctx context.Context, rec scrape.Record) model.Item {
	item := model.Item{
		ID:           rec.ItemID(),
		Name:         rec.Name,
		Category:     rec.Category,
		Store:        rec.Store,
		Price:        rec.Price,
		Unit:         rec.Unit,
		GramsPerUnit: rec.GramsPerUnit,
		Nutrition:    rec.Nutrition,
	}

	if o.nutrition == nil || !rec.NeedsNutrition() {
		return item
	}
	grams := rec.GramsPerUnit
	if grams == nil {
		return item
	}

	per100g, err := o.nutrition.Lookup(ctx, rec.Name)
	if err != nil {
		slog.Warn("nutrition lookup failed", "name", rec.Name, "error", err)
		return item
	}
	scale := *grams / 100
	item.Nutrition = model.Nutrition{
		Calories:     per100g.Calories * scale,
		ProteinGrams: per100g.ProteinGrams * scale,
		CarbsGrams:   per100g.CarbsGrams * scale,
		FatGrams:     per100g.FatGrams * scale,
	}
	return item
}

func (o *Orchestrator) release(sources []string, fl *inflight) {
	o.mu.Lock()
	for _, name := range sources {
		if o.running[name] == fl {
			delete(o.running, name)
		}
	}
	o.mu.Unlock()
	close(fl.done)
}

// Job returns one job record by id.
func (o *Orchestrator) Job(ctx context.Context, id string) (*model.RefreshJob, error) {
	return o.jobs.GetJob(ctx, id)
}

// RecentJobs returns the latest job records, newest first.
func (o *Orchestrator) RecentJobs(ctx context.Context, limit int) ([]model.RefreshJob, error) {
	return o.jobs.ListJobs(ctx, limit)
}

// StalenessSummary reports how much of the catalog has aged past the
// staleness threshold. Stale items stay visible to readers; this only
// informs whether to trigger a refresh.
type StalenessSummary struct {
	store.StaleCounts
	Threshold string `json:"threshold"`
}

// StalenessSummary computes the current staleness view of the catalog.
func (o *Orchestrator) StalenessSummary(ctx context.Context) (StalenessSummary, error) {
	counts, err := o.reader.StaleCounts(ctx, time.Now().UTC().Add(-o.staleAge))
	if err != nil {
		return StalenessSummary{}, fmt.Errorf("%w: %v", model.ErrCatalogUnavailable, err)
	}
	return StalenessSummary{StaleCounts: counts, Threshold: o.staleAge.String()}, nil
}
