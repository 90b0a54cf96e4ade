package scrape

import (
	"context"

	"github.com/cheapnut/cheapnut/internal/metrics"
	"github.com/cheapnut/cheapnut/internal/model"
)

// StaticSource serves a fixed record set. It backs the staple-item
// catalog when no live scraper is configured and doubles as the
// development fixture, the same way a stub fetcher would.
type StaticSource struct {
	name    string
	records []Record
}

// NewStaticSource creates a fetcher that always returns records.
func NewStaticSource(name string, records []Record) *StaticSource {
	return &StaticSource{name: name, records: records}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Fetch(_ context.Context) ([]Record, error) {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func lb(qty float64) *float64 {
	g := qty * metrics.GramsPerPound
	return &g
}

// GroceryStaples returns the tracked high-efficiency staple items with
// typical shelf prices. Nutrition is per the priced unit.
func GroceryStaples() *StaticSource {
	return NewStaticSource("grocery-staples", []Record{
		{Name: "Chicken Breast", Price: 5.00, Unit: "lb", Store: "Walmart", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 495, ProteinGrams: 93, FatGrams: 11}},
		{Name: "Frozen Green Beans", Price: 1.50, Unit: "lb", Store: "Walmart", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 140, ProteinGrams: 8, CarbsGrams: 32}},
		{Name: "Frozen Mixed Vegetables", Price: 1.25, Unit: "lb", Store: "Target", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 290, ProteinGrams: 12, CarbsGrams: 60}},
		{Name: "Dried Lentils", Price: 1.69, Unit: "lb", Store: "Walmart", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 1600, ProteinGrams: 115, CarbsGrams: 275}},
		{Name: "Dried Black Beans", Price: 1.79, Unit: "lb", Store: "Safeway", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 1550, ProteinGrams: 98, CarbsGrams: 285}},
		{Name: "Brown Rice", Price: 1.09, Unit: "lb", Store: "Walmart", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 1660, ProteinGrams: 36, CarbsGrams: 350}},
		{Name: "Rolled Oats", Price: 1.45, Unit: "lb", Store: "Trader Joe's", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 1720, ProteinGrams: 60, CarbsGrams: 305, FatGrams: 31}},
		{Name: "Bananas", Price: 0.58, Unit: "lb", Store: "Walmart", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 400, ProteinGrams: 5, CarbsGrams: 103}},
		{Name: "Carrots", Price: 0.98, Unit: "lb", Store: "Walmart", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 185, ProteinGrams: 4, CarbsGrams: 44}},
		{Name: "Eggs", Price: 2.99, Unit: "each", Store: "Safeway", Category: model.CategoryGrocery,
			GramsPerUnit: fptr(680),
			Nutrition:    model.Nutrition{Calories: 970, ProteinGrams: 85, FatGrams: 65}},
		{Name: "Whole Milk", Price: 3.25, Unit: "each", Store: "Safeway", Category: model.CategoryGrocery,
			GramsPerUnit: fptr(3785),
			Nutrition:    model.Nutrition{Calories: 2320, ProteinGrams: 120, CarbsGrams: 180, FatGrams: 120}},
		{Name: "Canned Tuna", Price: 1.19, Unit: "each", Store: "Walmart", Category: model.CategoryGrocery,
			GramsPerUnit: fptr(142),
			Nutrition:    model.Nutrition{Calories: 120, ProteinGrams: 27}},
		{Name: "Peanut Butter, 40 oz", Price: 4.48, Unit: "each", Store: "Walmart", Category: model.CategoryGrocery,
			Nutrition: model.Nutrition{Calories: 6700, ProteinGrams: 250, CarbsGrams: 250, FatGrams: 570}},
		{Name: "Whole Wheat Bread", Price: 2.48, Unit: "each", Store: "Target", Category: model.CategoryGrocery,
			GramsPerUnit: lb(1.25),
			Nutrition:    model.Nutrition{Calories: 1400, ProteinGrams: 70, CarbsGrams: 240}},
		{Name: "Frozen Spinach", Price: 1.38, Unit: "each", Store: "Walmart", Category: model.CategoryGrocery,
			GramsPerUnit: fptr(340),
			Nutrition:    model.Nutrition{Calories: 80, ProteinGrams: 10, CarbsGrams: 12}},
	})
}

// FastFoodMenu returns the tracked fast-food items. Nutrition is per
// serving, the unit the price applies to; no weight is known, so these
// never carry per-100g metrics.
func FastFoodMenu() *StaticSource {
	return NewStaticSource("fastfood-menu", []Record{
		{Name: "Big Mac", Price: 5.99, Unit: "serving", Store: "McDonald's", Category: model.CategoryFastFood,
			Nutrition: model.Nutrition{Calories: 550, ProteinGrams: 25, CarbsGrams: 45, FatGrams: 30}},
		{Name: "Chicken McNuggets (10 pc)", Price: 4.99, Unit: "serving", Store: "McDonald's", Category: model.CategoryFastFood,
			Nutrition: model.Nutrition{Calories: 410, ProteinGrams: 23, CarbsGrams: 25, FatGrams: 24}},
		{Name: "Sausage Croissant Sandwich", Price: 2.75, Unit: "serving", Store: "Jack in the Box", Category: model.CategoryFastFood,
			Nutrition: model.Nutrition{Calories: 450, ProteinGrams: 15, CarbsGrams: 35, FatGrams: 30}},
		{Name: "Crunchy Taco", Price: 1.79, Unit: "serving", Store: "Taco Bell", Category: model.CategoryFastFood,
			Nutrition: model.Nutrition{Calories: 170, ProteinGrams: 8, CarbsGrams: 13, FatGrams: 10}},
		{Name: "Chicken Burrito Bowl", Price: 9.65, Unit: "serving", Store: "Chipotle", Category: model.CategoryFastFood,
			Nutrition: model.Nutrition{Calories: 625, ProteinGrams: 45, CarbsGrams: 58, FatGrams: 22}},
		{Name: "Bacon Gouda Sandwich", Price: 4.95, Unit: "serving", Store: "Starbucks", Category: model.CategoryFastFood,
			Nutrition: model.Nutrition{Calories: 360, ProteinGrams: 18, CarbsGrams: 34, FatGrams: 17}},
	})
}

func fptr(v float64) *float64 { return &v }
