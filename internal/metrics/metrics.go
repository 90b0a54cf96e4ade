// Package metrics derives comparable value metrics from raw price and
// nutrition data. All functions are pure; the catalog store calls them
// at upsert time so derived values can never drift from their inputs.
package metrics

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cheapnut/cheapnut/internal/model"
)

// GramsPerPound is the exact avoirdupois conversion.
const GramsPerPound = 453.59237

const gramsPerOunce = GramsPerPound / 16

// Compute derives the per-dollar and per-100g metrics for an item.
// A missing or non-positive denominator leaves the corresponding metric
// nil (undefined), never zero: undefined metrics exclude the item from
// leaderboards on that metric instead of ranking it as worst.
func Compute(price float64, gramsPerUnit *float64, n model.Nutrition) model.Metrics {
	var m model.Metrics
	if price <= 0 {
		return m
	}

	m.ProteinPerDollar = ratio(n.ProteinGrams, price)
	m.CaloriesPerDollar = ratio(n.Calories, price)

	if gramsPerUnit != nil && *gramsPerUnit > 0 {
		m.PricePer100g = ratio(price, *gramsPerUnit/100)
	}
	return m
}

// ratio returns num/den, or nil when the result would be meaningless.
func ratio(num, den float64) *float64 {
	if den <= 0 {
		return nil
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// packageSize matches quantity phrases like "12 oz", "2 lb", "1.5kg"
// inside free-form product names.
var packageSize = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(lbs?|lb\.|oz|kg|g)\b`)

// GramsPerUnit resolves the weight in grams that an item's price applies
// to. Unit strings are free-form scraped text, so it recognizes common
// weight units directly and falls back to parsing a package-size phrase
// out of the product name ("Rolled Oats, 42 oz"). Returns nil when the
// weight cannot be determined; callers must treat that as an undefined
// per-100g metric, not as zero grams.
func GramsPerUnit(unit, name string) *float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "lb", "lbs", "pound", "pounds":
		g := GramsPerPound
		return &g
	case "oz", "ounce", "ounces":
		g := gramsPerOunce
		return &g
	case "kg":
		g := 1000.0
		return &g
	case "g", "gram", "grams":
		g := 1.0
		return &g
	case "100g":
		g := 100.0
		return &g
	}

	// "each"/"item"/"serving" pricing: look for a package size in the name.
	match := packageSize.FindStringSubmatch(strings.ToLower(name))
	if match == nil {
		return nil
	}
	qty, err := strconv.ParseFloat(match[1], 64)
	if err != nil || qty <= 0 {
		return nil
	}
	var g float64
	switch {
	case strings.HasPrefix(match[2], "lb"):
		g = qty * GramsPerPound
	case match[2] == "oz":
		g = qty * gramsPerOunce
	case match[2] == "kg":
		g = qty * 1000
	default:
		g = qty
	}
	return &g
}
