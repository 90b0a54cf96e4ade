// Package scrape defines the source-fetcher capability the refresh
// engine invokes, plus the bundled fetcher implementations. The engine
// tolerates any fetcher failing; a bad record never aborts a batch.
package scrape

import (
	"context"
	"strings"

	"github.com/cheapnut/cheapnut/internal/model"
)

// Record is one raw priced product as a source reports it, before
// validation and metric derivation.
type Record struct {
	Name         string
	Price        float64
	Unit         string
	Store        string
	Category     model.Category
	GramsPerUnit *float64
	Nutrition    model.Nutrition
}

// NeedsNutrition reports whether the source supplied no nutrition facts
// at all, making the record a candidate for enrichment.
func (r Record) NeedsNutrition() bool {
	n := r.Nutrition
	return n.Calories == 0 && n.ProteinGrams == 0 && n.CarbsGrams == 0 && n.FatGrams == 0
}

// ItemID derives the stable catalog id for the record. The same product
// from the same store maps to the same id on every refresh, which is
// what makes upserts idempotent across jobs.
func (r Record) ItemID() string {
	return slug(r.Store) + "-" + slug(r.Name)
}

func slug(s string) string {
	var b strings.Builder
	prevDash := true
	for _, c := range strings.ToLower(s) {
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b.WriteRune(c)
			prevDash = false
		case !prevDash:
			b.WriteByte('-')
			prevDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Fetcher produces zero or more raw records for one upstream source.
// Implementations own their network access; everything else in the
// refresh path is synchronous and in-memory.
type Fetcher interface {
	// Name identifies the source. Refresh jobs coalesce per name.
	Name() string
	Fetch(ctx context.Context) ([]Record, error)
}

// NutritionLookup resolves generic nutrition facts (per 100g) for a
// product name.
type NutritionLookup interface {
	Lookup(ctx context.Context, query string) (model.Nutrition, error)
}
