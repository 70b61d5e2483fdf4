package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("default port: %q", cfg.Port)
	}
	if cfg.SerpLocation != "Austin, Texas" {
		t.Errorf("default location: %q", cfg.SerpLocation)
	}
	if cfg.OpenAIModel != "gpt-4o-2024-08-06" {
		t.Errorf("default model: %q", cfg.OpenAIModel)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("default cache ttl: %v", cfg.CacheTTL)
	}
	if cfg.ScrapeConcurrency != 8 {
		t.Errorf("default concurrency: %d", cfg.ScrapeConcurrency)
	}
	if cfg.ScrapeTimeout != 10*time.Second {
		t.Errorf("default scrape timeout: %v", cfg.ScrapeTimeout)
	}
	if cfg.StorageBackend != "none" {
		t.Errorf("default storage backend: %q", cfg.StorageBackend)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("SCRAPE_CONCURRENCY", "3")
	t.Setenv("SCRAPE_RESPECT_ROBOTS", "true")
	t.Setenv("SCRAPE_RPS", "2.5")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("port override: %q", cfg.Port)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("ttl override: %v", cfg.CacheTTL)
	}
	if cfg.ScrapeConcurrency != 3 {
		t.Errorf("concurrency override: %d", cfg.ScrapeConcurrency)
	}
	if !cfg.RespectRobots {
		t.Error("robots override not applied")
	}
	if cfg.ScrapeRPS != 2.5 {
		t.Errorf("rps override: %v", cfg.ScrapeRPS)
	}
}

func TestLoad_ZeroDisablesCacheTTL(t *testing.T) {
	t.Setenv("CACHE_TTL", "0")

	if cfg := Load(); cfg.CacheTTL != 0 {
		t.Errorf("CACHE_TTL=0 should disable the cache, got %v", cfg.CacheTTL)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SCRAPE_CONCURRENCY", "lots")
	t.Setenv("CACHE_TTL", "soon")

	cfg := Load()
	if cfg.ScrapeConcurrency != 8 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.ScrapeConcurrency)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.CacheTTL)
	}
}
