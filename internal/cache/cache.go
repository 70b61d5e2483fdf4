// Package cache provides the Redis-backed result cache.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is not present.
var ErrMiss = errors.New("cache miss")

// Client is a minimal string cache. Implementations must return ErrMiss for
// absent keys so callers can tell a miss from an outage.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}
