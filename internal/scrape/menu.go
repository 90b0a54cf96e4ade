package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/cheapnut/cheapnut/internal/model"
)

const (
	// maxBodySize is the maximum HTTP response body size (5MB).
	maxBodySize = 5 * 1024 * 1024
	// maxMenuItems bounds how many records one menu page can yield.
	maxMenuItems = 50
)

// MenuSource scrapes a restaurant menu page. The page is flattened to
// readable text first, then scanned for name/price lines; nutrition is
// left empty for later enrichment. Menu layouts churn constantly, so
// this stays deliberately tolerant: unparseable lines are skipped, and
// an unreachable page is a plain source failure the refresh job absorbs.
type MenuSource struct {
	name   string
	store  string
	url    string
	client *http.Client
}

// NewMenuSource creates a fetcher for one restaurant menu URL.
func NewMenuSource(name, store, url string, timeout time.Duration) *MenuSource {
	return &MenuSource{
		name:  name,
		store: store,
		url:   url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (m *MenuSource) Name() string { return m.name }

// Fetch downloads the menu page and parses priced items out of it.
func (m *MenuSource) Fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Use a realistic browser User-Agent to avoid being blocked by sites.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, m.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parsedURL, _ := nurl.Parse(m.url)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	records := m.parseMenuText(article.TextContent)
	if len(records) == 0 {
		return nil, fmt.Errorf("no priced items found at %s, possibly blocked or layout change", m.url)
	}
	return records, nil
}

// menuLine matches "Double Cheeseburger $3.19" style lines, price last.
var menuLine = regexp.MustCompile(`^(.{3,80}?)[\s.·…]*\$(\d{1,3}(?:\.\d{2})?)$`)

func (m *MenuSource) parseMenuText(text string) []Record {
	var records []Record
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		match := menuLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		name := strings.TrimSpace(match[1])
		price, err := strconv.ParseFloat(match[2], 64)
		if err != nil || price <= 0 || name == "" {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		records = append(records, Record{
			Name:     name,
			Price:    price,
			Unit:     "serving",
			Store:    m.store,
			Category: model.CategoryFastFood,
		})
		if len(records) >= maxMenuItems {
			break
		}
	}
	return records
}
