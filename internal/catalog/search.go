// Package catalog implements the read-side query engine over the item
// store: free-text search, metric leaderboards and the opportunity-cost
// comparison. It depends on store.CatalogReader only and never mutates
// the catalog.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cheapnut/cheapnut/internal/model"
	"github.com/cheapnut/cheapnut/internal/store"
)

// Engine answers catalog queries.
type Engine struct {
	catalog  store.CatalogReader
	strategy Strategy
}

// NewEngine creates a query engine. An empty strategy falls back to
// StrategyProtein.
func NewEngine(r store.CatalogReader, strategy Strategy) *Engine {
	if strategy == "" {
		strategy = StrategyProtein
	}
	return &Engine{catalog: r, strategy: strategy}
}

// SearchResult partitions matches by item category.
type SearchResult struct {
	Grocery  []model.Item `json:"grocery"`
	FastFood []model.Item `json:"fastfood"`
}

// Search resolves a free-text query to matching catalog items. An empty
// query returns empty partitions by contract, not the whole catalog. An
// empty catalog is a valid no-results state; only a store read failure
// is an error (ErrCatalogUnavailable).
func (e *Engine) Search(ctx context.Context, query string) (SearchResult, error) {
	result := SearchResult{Grocery: []model.Item{}, FastFood: []model.Item{}}

	q := normalize(query)
	if q == "" {
		return result, nil
	}

	items, err := e.catalog.ListItems(ctx, "")
	if err != nil {
		return result, fmt.Errorf("%w: %v", model.ErrCatalogUnavailable, err)
	}

	for _, item := range items {
		if matches(q, normalize(item.Name)) {
			switch item.Category {
			case model.CategoryFastFood:
				result.FastFood = append(result.FastFood, item)
			default:
				result.Grocery = append(result.Grocery, item)
			}
		}
	}

	sortMatches(q, result.Grocery)
	sortMatches(q, result.FastFood)
	return result, nil
}

// searchCategory returns the matches of one partition, best first.
func (e *Engine) searchCategory(ctx context.Context, query string, category model.Category) ([]model.Item, error) {
	result, err := e.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if category == model.CategoryFastFood {
		return result.FastFood, nil
	}
	return result.Grocery, nil
}

// normalize case-folds, trims and collapses internal whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// matches reports whether a normalized query hits a normalized name:
// substring containment, or at least one shared whitespace token.
func matches(query, name string) bool {
	if strings.Contains(name, query) {
		return true
	}
	nameTokens := make(map[string]bool)
	for _, tok := range strings.Fields(name) {
		nameTokens[tok] = true
	}
	for _, tok := range strings.Fields(query) {
		if nameTokens[tok] {
			return true
		}
	}
	return false
}

// sortMatches orders a partition: exact normalized-name matches first,
// then ascending price-per-100g with undefined values last, then name
// as a stable tie-break.
func sortMatches(query string, items []model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		iExact := normalize(items[i].Name) == query
		jExact := normalize(items[j].Name) == query
		if iExact != jExact {
			return iExact
		}
		ip, jp := items[i].Metrics.PricePer100g, items[j].Metrics.PricePer100g
		switch {
		case ip != nil && jp != nil && *ip != *jp:
			return *ip < *jp
		case ip != nil && jp == nil:
			return true
		case ip == nil && jp != nil:
			return false
		}
		return items[i].Name < items[j].Name
	})
}
