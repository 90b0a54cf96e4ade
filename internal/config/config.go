// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// MenuSource is a named menu page to scrape.
type MenuSource struct {
	Name string
	URL  string
}

// Config holds all runtime settings.
type Config struct {
	Port   string
	DBPath string

	SourceTimeout      time.Duration
	HTTPTimeout        time.Duration
	StalenessThreshold time.Duration
	SchedulerInterval  time.Duration // 0 disables the scheduler

	BenchmarkStrategy string
	CORSOrigin        string
	OFFBaseURL        string
	MenuSources       []MenuSource
}

// Load reads configuration from environment variables, applying
// defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              envOr("PORT", "8080"),
		DBPath:            envOr("DB_PATH", "cheapnut.db"),
		BenchmarkStrategy: envOr("BENCHMARK_STRATEGY", "protein"),
		CORSOrigin:        envOr("CORS_ORIGIN", "*"),
		OFFBaseURL:        os.Getenv("OFF_BASE_URL"),
	}

	var err error
	if cfg.SourceTimeout, err = envDuration("SOURCE_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = envDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.StalenessThreshold, err = envDuration("STALENESS_THRESHOLD", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SchedulerInterval, err = envDuration("SCHEDULER_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.BenchmarkStrategy != "protein" && cfg.BenchmarkStrategy != "price" {
		return nil, fmt.Errorf("config: BENCHMARK_STRATEGY must be protein or price, got %q", cfg.BenchmarkStrategy)
	}

	if cfg.MenuSources, err = parseMenuSources(os.Getenv("MENU_SOURCES")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseMenuSources parses "name=url,name=url" pairs.
func parseMenuSources(raw string) ([]MenuSource, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var sources []MenuSource
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, url, ok := strings.Cut(pair, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("config: malformed MENU_SOURCES entry %q, want name=url", pair)
		}
		sources = append(sources, MenuSource{Name: name, URL: url})
	}
	return sources, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", key)
	}
	return d, nil
}
