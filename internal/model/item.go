package model

import "time"

// Category classifies where an item comes from. It is a closed set:
// ranking and comparison rules branch on exactly these two cases.
type Category string

const (
	CategoryGrocery  Category = "GROCERY"
	CategoryFastFood Category = "FASTFOOD"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryGrocery || c == CategoryFastFood
}

// Nutrition holds nutrition facts for one priced unit of an item.
type Nutrition struct {
	Calories     float64 `json:"calories"`
	ProteinGrams float64 `json:"protein"`
	CarbsGrams   float64 `json:"carbs"`
	FatGrams     float64 `json:"fat"`
}

// Metrics holds value metrics derived from price and nutrition.
// A nil field means the metric is undefined for the item (missing
// denominator), which is distinct from zero: undefined metrics exclude
// the item from leaderboards on that metric.
type Metrics struct {
	PricePer100g      *float64 `json:"price_per_100g,omitempty"`
	ProteinPerDollar  *float64 `json:"protein_per_dollar,omitempty"`
	CaloriesPerDollar *float64 `json:"calories_per_dollar,omitempty"`
}

// Item is one priced, nutrition-tagged product in the catalog.
// ID is assigned at first ingestion and never reused; Category is
// immutable once assigned. Metrics are recomputed by the store on every
// upsert and are never written independently.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	Store        string    `json:"store"`
	Price        float64   `json:"price"`
	Unit         string    `json:"unit"`
	GramsPerUnit *float64  `json:"grams_per_unit,omitempty"`
	Nutrition    Nutrition `json:"nutrition"`
	Metrics      Metrics   `json:"metrics"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Stale reports whether the item has not been refreshed within threshold.
func (it Item) Stale(now time.Time, threshold time.Duration) bool {
	return now.Sub(it.LastUpdated) > threshold
}
