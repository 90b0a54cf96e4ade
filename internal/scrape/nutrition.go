package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cheapnut/cheapnut/internal/model"
)

// OpenFoodFactsClient looks up generic per-100g nutrition facts for a
// product name via the Open Food Facts search API.
type OpenFoodFactsClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenFoodFactsClient creates a nutrition lookup client. baseURL
// defaults to the public Open Food Facts instance when empty.
func NewOpenFoodFactsClient(baseURL string, timeout time.Duration) *OpenFoodFactsClient {
	if baseURL == "" {
		baseURL = "https://world.openfoodfacts.org"
	}
	return &OpenFoodFactsClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type offResponse struct {
	Products []struct {
		Nutriments map[string]any `json:"nutriments"`
	} `json:"products"`
}

// Lookup returns the nutrition facts (per 100g) of the first product
// matching query. A query with no products is an error; enrichment
// callers treat any error here as "leave nutrition empty".
func (c *OpenFoodFactsClient) Lookup(ctx context.Context, query string) (model.Nutrition, error) {
	var n model.Nutrition

	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1",
		c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return n, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "cheapnut/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return n, fmt.Errorf("fetch nutrition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return n, fmt.Errorf("HTTP %d from nutrition API", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return n, fmt.Errorf("read response: %w", err)
	}

	var parsed offResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return n, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Products) == 0 {
		return n, fmt.Errorf("no nutrition data for %q", query)
	}

	nutriments := parsed.Products[0].Nutriments
	n.Calories = nutriment(nutriments, "energy-kcal_100g", 10000)
	n.ProteinGrams = nutriment(nutriments, "proteins_100g", 100)
	n.CarbsGrams = nutriment(nutriments, "carbohydrates_100g", 100)
	n.FatGrams = nutriment(nutriments, "fat_100g", 100)
	return n, nil
}

// nutriment coerces a nutriments value to a float and discards values
// outside [0, max]; Open Food Facts data is crowdsourced and sometimes
// carries strings or garbage magnitudes.
func nutriment(m map[string]any, key string, max float64) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		if _, err := fmt.Sscanf(t, "%f", &f); err != nil {
			return 0
		}
	default:
		return 0
	}
	if f < 0 || f > max {
		return 0
	}
	return f
}
