package metrics

import (
	"math"
	"testing"

	"github.com/cheapnut/cheapnut/internal/model"
)

func fptr(v float64) *float64 { return &v }

func TestCompute(t *testing.T) {
	grams := fptr(GramsPerPound)
	n := model.Nutrition{Calories: 495, ProteinGrams: 93}

	m := Compute(5.00, grams, n)

	if m.PricePer100g == nil {
		t.Fatal("PricePer100g is nil, want defined")
	}
	if got, want := *m.PricePer100g, 5.00/(GramsPerPound/100); math.Abs(got-want) > 1e-9 {
		t.Errorf("PricePer100g = %v, want %v", got, want)
	}
	if m.ProteinPerDollar == nil || math.Abs(*m.ProteinPerDollar-18.6) > 1e-9 {
		t.Errorf("ProteinPerDollar = %v, want 18.6", m.ProteinPerDollar)
	}
	if m.CaloriesPerDollar == nil || math.Abs(*m.CaloriesPerDollar-99) > 1e-9 {
		t.Errorf("CaloriesPerDollar = %v, want 99", m.CaloriesPerDollar)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	grams := fptr(340)
	n := model.Nutrition{Calories: 120, ProteinGrams: 8}

	a := Compute(2.49, grams, n)
	b := Compute(2.49, grams, n)

	if *a.PricePer100g != *b.PricePer100g ||
		*a.ProteinPerDollar != *b.ProteinPerDollar ||
		*a.CaloriesPerDollar != *b.CaloriesPerDollar {
		t.Error("repeated Compute with identical inputs disagrees")
	}
}

func TestCompute_UndefinedDenominators(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		grams *float64
	}{
		{"zero price", 0, fptr(454)},
		{"negative price", -1, fptr(454)},
		{"nil grams", 3.50, nil},
		{"zero grams", 3.50, fptr(0)},
		{"negative grams", 3.50, fptr(-10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compute(tt.price, tt.grams, model.Nutrition{Calories: 100, ProteinGrams: 10})
			if m.PricePer100g != nil {
				t.Errorf("PricePer100g = %v, want nil", *m.PricePer100g)
			}
			if tt.price <= 0 {
				if m.ProteinPerDollar != nil || m.CaloriesPerDollar != nil {
					t.Error("per-dollar metrics defined with non-positive price")
				}
			} else {
				// Grams only gates the per-100g metric.
				if m.ProteinPerDollar == nil || m.CaloriesPerDollar == nil {
					t.Error("per-dollar metrics missing with valid price")
				}
			}
		})
	}
}

func TestGramsPerUnit(t *testing.T) {
	tests := []struct {
		unit string
		name string
		want float64
		ok   bool
	}{
		{"lb", "Chicken Breast", GramsPerPound, true},
		{"lbs", "Carrots", GramsPerPound, true},
		{"oz", "Canned Tuna", GramsPerPound / 16, true},
		{"kg", "Brown Rice", 1000, true},
		{"100g", "Spinach", 100, true},
		{"item", "Rolled Oats, 42 oz", 42 * GramsPerPound / 16, true},
		{"each", "Great Value Frozen Green Beans 12 oz", 12 * GramsPerPound / 16, true},
		{"each", "Dried Lentils 2 lb Bag", 2 * GramsPerPound, true},
		{"each", "Whole Milk 1.5kg", 1500, true},
		{"serving", "Big Mac", 0, false},
		{"", "Bananas", 0, false},
	}
	for _, tt := range tests {
		got := GramsPerUnit(tt.unit, tt.name)
		if tt.ok {
			if got == nil {
				t.Errorf("GramsPerUnit(%q, %q) = nil, want %v", tt.unit, tt.name, tt.want)
			} else if math.Abs(*got-tt.want) > 1e-6 {
				t.Errorf("GramsPerUnit(%q, %q) = %v, want %v", tt.unit, tt.name, *got, tt.want)
			}
		} else if got != nil {
			t.Errorf("GramsPerUnit(%q, %q) = %v, want nil", tt.unit, tt.name, *got)
		}
	}
}
