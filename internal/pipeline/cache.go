package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/beacon/internal/cache"
	"github.com/FranksOps/beacon/internal/metrics"
)

// DefaultCacheTTL applies when no TTL is configured for the cached runner.
const DefaultCacheTTL = 15 * time.Minute

const cacheKeyPrefix = "search:"

// Cached is a read-through cache around a Runner. Cache failures degrade to
// running the inner pipeline; a broken Redis must never break search.
type Cached struct {
	inner  Runner
	client cache.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Runner = (*Cached)(nil)

// NewCached wraps a runner with a result cache. A ttl of 0 selects
// DefaultCacheTTL.
func NewCached(inner Runner, client cache.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Run returns the cached result for an equivalent query when present, and
// otherwise runs the inner pipeline and stores its result.
func (c *Cached) Run(ctx context.Context, query string) (*Result, error) {
	key := CacheKey(query)

	if val, err := c.client.Get(ctx, key); err == nil {
		var res Result
		if jerr := json.Unmarshal([]byte(val), &res); jerr == nil {
			metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
			c.logger.Debug("cache hit", "key", key)
			return &res, nil
		}
		// A corrupt entry falls through to a fresh run and gets overwritten.
		c.logger.Warn("corrupt cache entry", "key", key)
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
	} else if errors.Is(err, cache.ErrMiss) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	} else {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("cache lookup failed", "key", key, "err", err)
	}

	res, err := c.inner.Run(ctx, query)
	if err != nil {
		return nil, err
	}

	if encoded, jerr := json.Marshal(res); jerr == nil {
		if serr := c.client.Set(ctx, key, string(encoded), c.ttl); serr != nil {
			c.logger.Warn("cache store failed", "key", key, "err", serr)
		}
	}

	return res, nil
}

// CacheKey derives the cache key for a query. Queries differing only in case
// or surrounding/repeated whitespace share an entry.
func CacheKey(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	normalized = strings.Join(strings.Fields(normalized), " ")
	return cacheKeyPrefix + normalized
}
