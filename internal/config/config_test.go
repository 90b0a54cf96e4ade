package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DBPath != "cheapnut.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.SourceTimeout != 20*time.Second {
		t.Errorf("SourceTimeout = %v", cfg.SourceTimeout)
	}
	if cfg.StalenessThreshold != 6*time.Hour {
		t.Errorf("StalenessThreshold = %v", cfg.StalenessThreshold)
	}
	if cfg.SchedulerInterval != 15*time.Minute {
		t.Errorf("SchedulerInterval = %v", cfg.SchedulerInterval)
	}
	if cfg.BenchmarkStrategy != "protein" {
		t.Errorf("BenchmarkStrategy = %q", cfg.BenchmarkStrategy)
	}
	if cfg.CORSOrigin != "*" {
		t.Errorf("CORSOrigin = %q", cfg.CORSOrigin)
	}
	if len(cfg.MenuSources) != 0 {
		t.Errorf("MenuSources = %v", cfg.MenuSources)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SOURCE_TIMEOUT", "5s")
	t.Setenv("SCHEDULER_INTERVAL", "0s")
	t.Setenv("BENCHMARK_STRATEGY", "price")
	t.Setenv("MENU_SOURCES", "taco-truck=https://example.com/menu, diner=https://example.org/specials")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SourceTimeout != 5*time.Second {
		t.Errorf("SourceTimeout = %v", cfg.SourceTimeout)
	}
	if cfg.SchedulerInterval != 0 {
		t.Errorf("SchedulerInterval = %v, want disabled", cfg.SchedulerInterval)
	}
	if cfg.BenchmarkStrategy != "price" {
		t.Errorf("BenchmarkStrategy = %q", cfg.BenchmarkStrategy)
	}
	want := []MenuSource{
		{Name: "taco-truck", URL: "https://example.com/menu"},
		{Name: "diner", URL: "https://example.org/specials"},
	}
	if len(cfg.MenuSources) != len(want) {
		t.Fatalf("MenuSources = %v", cfg.MenuSources)
	}
	for i := range want {
		if cfg.MenuSources[i] != want[i] {
			t.Errorf("MenuSources[%d] = %v, want %v", i, cfg.MenuSources[i], want[i])
		}
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "SOURCE_TIMEOUT", "twenty"},
		{"negative duration", "STALENESS_THRESHOLD", "-1h"},
		{"unknown strategy", "BENCHMARK_STRATEGY", "sodium"},
		{"malformed menu source", "MENU_SOURCES", "just-a-name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%q", tt.key, tt.value)
			}
		})
	}
}
