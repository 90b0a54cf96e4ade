package refresh

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cheapnut/cheapnut/internal/model"
	"github.com/cheapnut/cheapnut/internal/scrape"
	"github.com/cheapnut/cheapnut/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

// fakeFetcher returns canned records or an error, optionally blocking
// until released.
type fakeFetcher struct {
	name    string
	records []scrape.Record
	err     error
	block   chan struct{} // when non-nil, Fetch waits for close or ctx
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context) ([]scrape.Record, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, f.err
}

func goodRecord(name string) scrape.Record {
	return scrape.Record{
		Name: name, Price: 2.50, Unit: "lb", Store: "Walmart",
		Category:  model.CategoryGrocery,
		Nutrition: model.Nutrition{Calories: 100, ProteinGrams: 10},
	}
}

func waitTerminal(t *testing.T, s *store.Store, jobID string) *model.RefreshJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return nil
}

func TestTrigger_AllSourcesSucceed(t *testing.T) {
	s := newTestStore(t)
	o := New(s, s, s, []scrape.Fetcher{
		&fakeFetcher{name: "walmart", records: []scrape.Record{goodRecord("Chicken Breast"), goodRecord("Brown Rice")}},
		&fakeFetcher{name: "safeway", records: []scrape.Record{goodRecord("Eggs")}},
	}, Options{})

	job, coalesced, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if coalesced {
		t.Error("fresh trigger reported as coalesced")
	}
	if job.Status != model.JobRunning {
		t.Errorf("initial status = %s, want RUNNING", job.Status)
	}

	done := waitTerminal(t, s, job.JobID)
	if done.Status != model.JobSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", done.Status)
	}
	if done.SourcesAttempted != 2 || done.SourcesSucceeded != 2 || done.ItemsWritten != 3 {
		t.Errorf("job counters = %+v", done)
	}

	items, err := s.ListItems(context.Background(), "")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("catalog has %d items, want 3", len(items))
	}
}

func TestTrigger_PartialFailure(t *testing.T) {
	s := newTestStore(t)
	o := New(s, s, s, []scrape.Fetcher{
		&fakeFetcher{name: "good", records: []scrape.Record{goodRecord("Lentils")}},
		&fakeFetcher{name: "bad", err: errors.New("CAPTCHA wall")},
	}, Options{})

	job, _, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	done := waitTerminal(t, s, job.JobID)
	if done.Status != model.JobPartialFailure {
		t.Errorf("status = %s, want PARTIAL_FAILURE", done.Status)
	}
	if done.SourcesSucceeded != 1 || done.ItemsWritten != 1 {
		t.Errorf("job counters = %+v", done)
	}
}

func TestTrigger_AllFail(t *testing.T) {
	s := newTestStore(t)
	o := New(s, s, s, []scrape.Fetcher{
		&fakeFetcher{name: "bad1", err: errors.New("boom")},
		&fakeFetcher{name: "bad2", err: errors.New("boom")},
	}, Options{})

	job, _, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if done := waitTerminal(t, s, job.JobID); done.Status != model.JobFailed {
		t.Errorf("status = %s, want FAILED", done.Status)
	}
}

func TestTrigger_SourceTimeoutDoesNotAbortSiblings(t *testing.T) {
	s := newTestStore(t)
	o := New(s, s, s, []scrape.Fetcher{
		&fakeFetcher{name: "hung", block: make(chan struct{})}, // never released
		&fakeFetcher{name: "fast", records: []scrape.Record{goodRecord("Oats")}},
	}, Options{SourceTimeout: 50 * time.Millisecond})

	job, _, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	done := waitTerminal(t, s, job.JobID)
	if done.Status != model.JobPartialFailure {
		t.Errorf("status = %s, want PARTIAL_FAILURE (timeout counts as failed source)", done.Status)
	}
	if done.ItemsWritten != 1 {
		t.Errorf("ItemsWritten = %d, want the fast source's record", done.ItemsWritten)
	}
}

func TestTrigger_Coalescing(t *testing.T) {
	s := newTestStore(t)
	release := make(chan struct{})
	o := New(s, s, s, []scrape.Fetcher{
		&fakeFetcher{name: "walmart", records: []scrape.Record{goodRecord("Bananas")}, block: release},
	}, Options{})

	first, coalesced, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("first Trigger: %v", err)
	}
	if coalesced {
		t.Error("first trigger coalesced")
	}

	second, coalesced, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("second Trigger: %v", err)
	}
	if !coalesced {
		t.Error("second trigger for a running source not coalesced")
	}
	if second.JobID != first.JobID {
		t.Errorf("coalesced onto job %s, want %s", second.JobID, first.JobID)
	}

	close(release)
	waitTerminal(t, s, first.JobID)

	// Exactly one job transitioned to a terminal state.
	jobs, err := s.ListJobs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("%d jobs recorded, want 1", len(jobs))
	}

	// Once the job is done, a new trigger starts a fresh one.
	third, coalesced, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("third Trigger: %v", err)
	}
	if coalesced || third.JobID == first.JobID {
		t.Errorf("trigger after completion reused job %s", third.JobID)
	}
	waitTerminal(t, s, third.JobID)
}

func TestTrigger_UnknownSource(t *testing.T) {
	s := newTestStore(t)
	o := New(s, s, s, []scrape.Fetcher{&fakeFetcher{name: "walmart"}}, Options{})
	if _, _, err := o.Trigger(context.Background(), "area51"); err == nil {
		t.Error("unknown source accepted")
	}
}

func TestRun_SkipsInvalidRecords(t *testing.T) {
	s := newTestStore(t)
	bad := goodRecord("Free Sample")
	bad.Price = 0
	o := New(s, s, s, []scrape.Fetcher{
		&fakeFetcher{name: "walmart", records: []scrape.Record{goodRecord("Carrots"), bad, goodRecord("Milk")}},
	}, Options{})

	job, _, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	done := waitTerminal(t, s, job.JobID)
	// One bad record is skipped, the batch and the source still succeed.
	if done.Status != model.JobSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", done.Status)
	}
	if done.ItemsWritten != 2 {
		t.Errorf("ItemsWritten = %d, want 2", done.ItemsWritten)
	}
}

type fakeNutrition struct {
	n model.Nutrition
}

func (f fakeNutrition) Lookup(context.Context, string) (model.Nutrition, error) {
	return f.n, nil
}

func TestEnrichment_ScalesPer100gToUnitWeight(t *testing.T) {
	s := newTestStore(t)
	grams := 200.0
	rec := scrape.Record{
		Name: "Plain Tofu", Price: 2.00, Unit: "each", Store: "Trader Joe's",
		Category:     model.CategoryGrocery,
		GramsPerUnit: &grams,
	}
	o := New(s, s, s, []scrape.Fetcher{
		&fakeFetcher{name: "tj", records: []scrape.Record{rec}},
	}, Options{
		Nutrition: fakeNutrition{n: model.Nutrition{Calories: 76, ProteinGrams: 8}},
	})

	job, _, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	waitTerminal(t, s, job.JobID)

	item, err := s.GetItem(context.Background(), "trader-joe-s-plain-tofu")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	// 200g unit at 76 kcal / 8g protein per 100g.
	if item.Nutrition.Calories != 152 || item.Nutrition.ProteinGrams != 16 {
		t.Errorf("enriched nutrition = %+v", item.Nutrition)
	}
	if item.Metrics.ProteinPerDollar == nil || *item.Metrics.ProteinPerDollar != 8 {
		t.Errorf("ProteinPerDollar = %v, want 8", item.Metrics.ProteinPerDollar)
	}
}

func TestEnrichment_SkippedWithoutWeight(t *testing.T) {
	s := newTestStore(t)
	rec := scrape.Record{
		Name: "Mystery Snack", Price: 1.00, Unit: "each", Store: "Kiosk",
		Category: model.CategoryFastFood,
	}
	o := New(s, s, s, []scrape.Fetcher{
		&fakeFetcher{name: "kiosk", records: []scrape.Record{rec}},
	}, Options{
		Nutrition: fakeNutrition{n: model.Nutrition{Calories: 500}},
	})

	job, _, err := o.Trigger(context.Background())
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	waitTerminal(t, s, job.JobID)

	item, err := s.GetItem(context.Background(), "kiosk-mystery-snack")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	// Per-100g facts cannot be scaled onto an unweighed unit.
	if item.Nutrition.Calories != 0 {
		t.Errorf("nutrition applied without a known weight: %+v", item.Nutrition)
	}
}

func TestStalenessSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	old := model.Item{
		ID: "old", Name: "Old Beans", Category: model.CategoryGrocery, Store: "W",
		Price: 1, Unit: "lb", LastUpdated: time.Now().UTC().Add(-48 * time.Hour),
	}
	if _, err := s.UpsertItem(ctx, old); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	o := New(s, s, s, nil, Options{StalenessThreshold: 6 * time.Hour})
	sum, err := o.StalenessSummary(ctx)
	if err != nil {
		t.Fatalf("StalenessSummary: %v", err)
	}
	if sum.Total != 1 || sum.Stale != 1 {
		t.Errorf("summary = %+v, want 1 total, 1 stale", sum)
	}
	if sum.Threshold != "6h0m0s" {
		t.Errorf("Threshold = %q", sum.Threshold)
	}
}
