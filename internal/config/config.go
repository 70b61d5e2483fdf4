// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string

	// Search provider
	SerpAPIKey    string
	SerpLocation  string
	SearchTimeout time.Duration

	// Synthesis
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	SynthTimeout  time.Duration

	// Result cache
	RedisURL string
	CacheTTL time.Duration // 0 disables the cache

	// Fetch archive
	StorageBackend string // none, json, sqlite, postgres
	StorageDSN     string

	// Scraping
	ScrapeConcurrency int
	ScrapeTimeout     time.Duration
	ScrapeRPS         float64
	ScrapeJitter      float64
	RespectRobots     bool
	ProxyFile         string
	TLSProfile        string

	MetricsPort int // 0 disables the metrics server
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "dev"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		SerpAPIKey:    getEnv("SERPAPI_KEY", ""),
		SerpLocation:  getEnv("SERP_LOCATION", "Austin, Texas"),
		SearchTimeout: getDuration("SEARCH_TIMEOUT", 0),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-2024-08-06"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		SynthTimeout:  getDuration("SYNTH_TIMEOUT", 0),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		CacheTTL: getDuration("CACHE_TTL", 15*time.Minute),

		StorageBackend: getEnv("STORAGE_BACKEND", "none"),
		StorageDSN:     getEnv("STORAGE_DSN", ""),

		ScrapeConcurrency: getInt("SCRAPE_CONCURRENCY", 8),
		ScrapeTimeout:     getDuration("SCRAPE_TIMEOUT", 10*time.Second),
		ScrapeRPS:         getFloat("SCRAPE_RPS", 0),
		ScrapeJitter:      getFloat("SCRAPE_JITTER", 0),
		RespectRobots:     getBool("SCRAPE_RESPECT_ROBOTS", false),
		ProxyFile:         getEnv("PROXY_FILE", ""),
		TLSProfile:        getEnv("TLS_PROFILE", "chrome"),

		MetricsPort: getInt("METRICS_PORT", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("10s", "15m"). A bare "0" disables
// the timeout.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if value == "0" {
			return 0
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
