package catalog

import (
	"context"
	"fmt"

	"github.com/cheapnut/cheapnut/internal/model"
	"github.com/cheapnut/cheapnut/internal/store"
)

// DefaultLeaderboardLimit is used when the caller does not choose one.
const DefaultLeaderboardLimit = 10

// Leaderboard returns up to limit items ranked best-first on the given
// metric: protein and calories rank by descending per-dollar value,
// price by ascending price-per-100g. Items whose metric is undefined
// are excluded outright rather than sorted to the bottom. limit <= 0
// yields an empty ranking.
func (e *Engine) Leaderboard(ctx context.Context, metric string, limit int) ([]model.Item, error) {
	switch metric {
	case store.MetricProtein, store.MetricCalories, store.MetricPrice:
	default:
		return nil, fmt.Errorf("metric must be protein, calories or price, got %q", metric)
	}
	if limit <= 0 {
		return []model.Item{}, nil
	}

	items, err := e.catalog.TopByMetric(ctx, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCatalogUnavailable, err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}
