// Package store owns the catalog: it is the single source of truth for
// Item records and refresh-job history. Derived value metrics are
// computed here at upsert time, never at read time, so reads stay O(1)
// and the metrics can never drift from price/nutrition.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cheapnut/cheapnut/internal/metrics"
	"github.com/cheapnut/cheapnut/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ CatalogReader = (*Store)(nil)
	_ CatalogWriter = (*Store)(nil)
	_ JobStore      = (*Store)(nil)
)

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: items and refresh_jobs tables
		s.migrateV2, // v1 → v2: leaderboard indexes on derived metrics
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		category            TEXT NOT NULL,
		store               TEXT NOT NULL,
		price               REAL NOT NULL,
		unit                TEXT NOT NULL,
		grams_per_unit      REAL,
		calories            REAL NOT NULL DEFAULT 0,
		protein_g           REAL NOT NULL DEFAULT 0,
		carbs_g             REAL NOT NULL DEFAULT 0,
		fat_g               REAL NOT NULL DEFAULT 0,
		price_per_100g      REAL,
		protein_per_dollar  REAL,
		calories_per_dollar REAL,
		last_updated        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category, name);

	CREATE TABLE IF NOT EXISTS refresh_jobs (
		job_id            TEXT PRIMARY KEY,
		sources           TEXT NOT NULL,
		started_at        TEXT NOT NULL,
		finished_at       TEXT,
		status            TEXT NOT NULL,
		sources_attempted INTEGER NOT NULL DEFAULT 0,
		sources_succeeded INTEGER NOT NULL DEFAULT 0,
		items_written     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_started ON refresh_jobs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds partial indexes backing the leaderboard queries (v1 → v2).
func (s *Store) migrateV2() error {
	schema := `
	CREATE INDEX IF NOT EXISTS idx_items_protein  ON items(protein_per_dollar DESC, id)  WHERE protein_per_dollar IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_items_calories ON items(calories_per_dollar DESC, id) WHERE calories_per_dollar IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_items_price    ON items(price_per_100g ASC, id)       WHERE price_per_100g IS NOT NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

const itemColumns = `id, name, category, store, price, unit, grams_per_unit,
	calories, protein_g, carbs_g, fat_g,
	price_per_100g, protein_per_dollar, calories_per_dollar, last_updated`

// UpsertItem validates the item, recomputes its derived metrics and
// writes the whole record in one statement, so a concurrent reader sees
// either the fully-old or the fully-new row. Idempotent on ID: a second
// upsert with identical fields changes nothing but last_updated. The
// category of an existing row is never overwritten.
func (s *Store) UpsertItem(ctx context.Context, item model.Item) (*model.Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	grams := item.GramsPerUnit
	if grams == nil {
		grams = metrics.GramsPerUnit(item.Unit, item.Name)
	}
	m := metrics.Compute(item.Price, grams, item.Nutrition)

	now := item.LastUpdated
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name                = excluded.name,
			store               = excluded.store,
			price               = excluded.price,
			unit                = excluded.unit,
			grams_per_unit      = excluded.grams_per_unit,
			calories            = excluded.calories,
			protein_g           = excluded.protein_g,
			carbs_g             = excluded.carbs_g,
			fat_g               = excluded.fat_g,
			price_per_100g      = excluded.price_per_100g,
			protein_per_dollar  = excluded.protein_per_dollar,
			calories_per_dollar = excluded.calories_per_dollar,
			last_updated        = excluded.last_updated`,
		item.ID, item.Name, string(item.Category), item.Store, item.Price, item.Unit, grams,
		item.Nutrition.Calories, item.Nutrition.ProteinGrams, item.Nutrition.CarbsGrams, item.Nutrition.FatGrams,
		m.PricePer100g, m.ProteinPerDollar, m.CaloriesPerDollar,
		now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert item %s: %w", item.ID, err)
	}

	// Read the row back: a conflicting upsert keeps the original category.
	return s.GetItem(ctx, item.ID)
}

func validateItem(item model.Item) error {
	if item.ID == "" {
		return &model.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if item.Name == "" {
		return &model.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !item.Category.Valid() {
		return &model.ValidationError{Field: "category", Reason: "must be GROCERY or FASTFOOD"}
	}
	if item.Price <= 0 {
		return &model.ValidationError{Field: "price", Reason: fmt.Sprintf("must be positive, got %v", item.Price)}
	}
	if strings.TrimSpace(item.Unit) == "" {
		return &model.ValidationError{Field: "unit", Reason: "must not be empty"}
	}
	return nil
}

// GetItem returns the item with the given id, or model.ErrItemNotFound.
func (s *Store) GetItem(ctx context.Context, id string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns all items, optionally restricted to one category.
// Ordered by id so repeated calls on unchanged data agree.
func (s *Store) ListItems(ctx context.Context, category model.Category) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// ListByIDs returns the items whose ids are in the given set. Missing
// ids are silently absent from the result.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]model.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id IN (` + strings.Join(placeholders, ",") + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// TopByMetric returns up to limit items ranked best-first on the given
// metric. Items whose metric is NULL never appear; ties break on
// ascending id so the ranking is stable across calls.
func (s *Store) TopByMetric(ctx context.Context, metric string, limit int) ([]model.Item, error) {
	if limit <= 0 {
		return nil, nil
	}

	var order string
	switch metric {
	case MetricProtein:
		order = `protein_per_dollar IS NOT NULL ORDER BY protein_per_dollar DESC`
	case MetricCalories:
		order = `calories_per_dollar IS NOT NULL ORDER BY calories_per_dollar DESC`
	case MetricPrice:
		order = `price_per_100g IS NOT NULL ORDER BY price_per_100g ASC`
	default:
		return nil, fmt.Errorf("unknown metric %q", metric)
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + order + `, id ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// StaleCounts reports how many items were last updated before cutoff.
// RFC3339 UTC timestamps compare correctly as strings.
func (s *Store) StaleCounts(ctx context.Context, cutoff time.Time) (StaleCounts, error) {
	var counts StaleCounts
	var oldest sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN last_updated < ? THEN 1 ELSE 0 END), 0),
			MIN(last_updated)
		FROM items`, cutoff.UTC().Format(time.RFC3339))
	if err := row.Scan(&counts.Total, &counts.Stale, &oldest); err != nil {
		return counts, err
	}
	if oldest.Valid {
		t, err := time.Parse(time.RFC3339, oldest.String)
		if err != nil {
			return counts, fmt.Errorf("parse oldest update: %w", err)
		}
		counts.OldestUpdate = &t
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// Refresh jobs
// ---------------------------------------------------------------------------

// CreateJob inserts a new RUNNING job record.
func (s *Store) CreateJob(ctx context.Context, job model.RefreshJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_jobs (job_id, sources, started_at, status, sources_attempted)
		VALUES (?, ?, ?, ?, ?)`,
		job.JobID, strings.Join(job.Sources, ","), job.StartedAt.UTC().Format(time.RFC3339),
		job.Status, job.SourcesAttempted,
	)
	return err
}

// FinishJob writes the terminal state of a job. It refuses to touch a
// job that already reached a terminal status.
func (s *Store) FinishJob(ctx context.Context, job model.RefreshJob) error {
	if job.FinishedAt == nil {
		return fmt.Errorf("finish job %s: no finished_at", job.JobID)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_jobs
		SET finished_at = ?, status = ?, sources_attempted = ?, sources_succeeded = ?, items_written = ?
		WHERE job_id = ? AND status = ?`,
		job.FinishedAt.UTC().Format(time.RFC3339), job.Status,
		job.SourcesAttempted, job.SourcesSucceeded, job.ItemsWritten,
		job.JobID, model.JobRunning,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish job %s: not running", job.JobID)
	}
	return nil
}

// GetJob returns the job with the given id, or model.ErrItemNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (*model.RefreshJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, sources, started_at, finished_at, status, sources_attempted, sources_succeeded, items_written
		FROM refresh_jobs WHERE job_id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrItemNotFound
	}
	return job, err
}

// ListJobs returns the most recent jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]model.RefreshJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, sources, started_at, finished_at, status, sources_attempted, sources_succeeded, items_written
		FROM refresh_jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.RefreshJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*model.Item, error) {
	var item model.Item
	var category, lastUpdated string
	var grams, per100g, protPerDollar, calPerDollar sql.NullFloat64
	err := row.Scan(
		&item.ID, &item.Name, &category, &item.Store, &item.Price, &item.Unit, &grams,
		&item.Nutrition.Calories, &item.Nutrition.ProteinGrams, &item.Nutrition.CarbsGrams, &item.Nutrition.FatGrams,
		&per100g, &protPerDollar, &calPerDollar, &lastUpdated,
	)
	if err != nil {
		return nil, err
	}
	item.Category = model.Category(category)
	item.GramsPerUnit = nullFloat(grams)
	item.Metrics = model.Metrics{
		PricePer100g:      nullFloat(per100g),
		ProteinPerDollar:  nullFloat(protPerDollar),
		CaloriesPerDollar: nullFloat(calPerDollar),
	}
	if item.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated); err != nil {
		return nil, fmt.Errorf("parse last_updated for %s: %w", item.ID, err)
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanJob(row scanner) (*model.RefreshJob, error) {
	var job model.RefreshJob
	var sources, startedAt string
	var finishedAt sql.NullString
	err := row.Scan(&job.JobID, &sources, &startedAt, &finishedAt, &job.Status,
		&job.SourcesAttempted, &job.SourcesSucceeded, &job.ItemsWritten)
	if err != nil {
		return nil, err
	}
	if sources != "" {
		job.Sources = strings.Split(sources, ",")
	}
	if job.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at for %s: %w", job.JobID, err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at for %s: %w", job.JobID, err)
		}
		job.FinishedAt = &t
	}
	return &job, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
