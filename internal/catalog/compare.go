package catalog

import (
	"context"
	"fmt"

	"github.com/cheapnut/cheapnut/internal/metrics"
	"github.com/cheapnut/cheapnut/internal/model"
)

// Strategy names the policy for picking the grocery benchmark item.
type Strategy string

const (
	// StrategyProtein rewards protein density: highest protein-per-dollar,
	// ties broken by lowest price-per-100g.
	StrategyProtein Strategy = "protein"
	// StrategyPrice picks the cheapest item per 100g.
	StrategyPrice Strategy = "price"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyProtein || s == StrategyPrice
}

// NutritionSummary is the calories/protein pair shown on both sides of
// a comparison.
type NutritionSummary struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
}

// Potential is what the same spend buys from the benchmark item.
type Potential struct {
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	QuantityLbs float64 `json:"quantity_lbs"`
}

// Comparison is the opportunity-cost result for one fast-food purchase.
type Comparison struct {
	Cost               float64          `json:"cost"`
	ComparisonItem     string           `json:"comparison_item"`
	FastFoodItem       string           `json:"fast_food_item"`
	FastFoodMetrics    NutritionSummary `json:"fast_food_metrics"`
	BenchmarkPotential Potential        `json:"benchmark_potential"`
	Multipliers        NutritionSummary `json:"multipliers"`
}

// Compare resolves query to a fast-food item, picks a grocery benchmark
// by the configured strategy, and computes what the same spend would
// buy. Deterministic for a fixed catalog state; never mutates it.
// Returns model.ErrItemNotFound when the query matches no fast-food
// item and model.ErrNoBenchmark when no grocery item qualifies.
func (e *Engine) Compare(ctx context.Context, query string) (*Comparison, error) {
	ffMatches, err := e.searchCategory(ctx, query, model.CategoryFastFood)
	if err != nil {
		return nil, err
	}
	if len(ffMatches) == 0 {
		return nil, fmt.Errorf("%w: no fast food match for %q", model.ErrItemNotFound, query)
	}
	ff := ffMatches[0]

	groceries, err := e.catalog.ListItems(ctx, model.CategoryGrocery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCatalogUnavailable, err)
	}
	benchmark := selectBenchmark(groceries, e.strategy)
	if benchmark == nil {
		return nil, model.ErrNoBenchmark
	}

	cost := ff.Price
	quantityGrams := cost / *benchmark.Metrics.PricePer100g * 100

	// Per-dollar metrics times the spend equal the per-100g projection
	// over the purchasable quantity; both exist whenever price > 0.
	potential := Potential{
		QuantityLbs: quantityGrams / metrics.GramsPerPound,
	}
	if benchmark.Metrics.CaloriesPerDollar != nil {
		potential.Calories = *benchmark.Metrics.CaloriesPerDollar * cost
	}
	if benchmark.Metrics.ProteinPerDollar != nil {
		potential.Protein = *benchmark.Metrics.ProteinPerDollar * cost
	}

	return &Comparison{
		Cost:           cost,
		ComparisonItem: benchmark.Name,
		FastFoodItem:   ff.Name,
		FastFoodMetrics: NutritionSummary{
			Calories: ff.Nutrition.Calories,
			Protein:  ff.Nutrition.ProteinGrams,
		},
		BenchmarkPotential: potential,
		Multipliers: NutritionSummary{
			Calories: multiplier(potential.Calories, ff.Nutrition.Calories),
			Protein:  multiplier(potential.Protein, ff.Nutrition.ProteinGrams),
		},
	}, nil
}

// selectBenchmark applies the strategy over grocery items that have a
// defined price-per-100g. Final ties break on ascending id so the pick
// is stable across calls.
func selectBenchmark(groceries []model.Item, strategy Strategy) *model.Item {
	var best *model.Item
	for i := range groceries {
		cand := &groceries[i]
		if cand.Metrics.PricePer100g == nil {
			continue
		}
		if best == nil || better(cand, best, strategy) {
			best = cand
		}
	}
	return best
}

func better(a, b *model.Item, strategy Strategy) bool {
	if strategy == StrategyPrice {
		if *a.Metrics.PricePer100g != *b.Metrics.PricePer100g {
			return *a.Metrics.PricePer100g < *b.Metrics.PricePer100g
		}
		return a.ID < b.ID
	}

	ap, bp := deref(a.Metrics.ProteinPerDollar), deref(b.Metrics.ProteinPerDollar)
	if ap != bp {
		return ap > bp
	}
	if *a.Metrics.PricePer100g != *b.Metrics.PricePer100g {
		return *a.Metrics.PricePer100g < *b.Metrics.PricePer100g
	}
	return a.ID < b.ID
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func multiplier(alt, ff float64) float64 {
	if ff <= 0 {
		return 0
	}
	return alt / ff
}
