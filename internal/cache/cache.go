package cache

import (
	"context"
	"errors"
	"time"

	"twoziq/internal/config"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Cacher is the interface for caching fetched price series and computed
// analytics snapshots. Values are stored JSON-encoded.
type Cacher interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// New creates a cache instance based on configuration: Redis when enabled,
// otherwise an in-memory cache. A Redis connection failure falls back to
// memory so the service can start without its cache tier.
func New(cfg *config.RedisConfig) (Cacher, error) {
	if cfg != nil && cfg.Enabled {
		rc, err := NewRedisCache(cfg)
		if err == nil {
			return rc, nil
		}
		return NewMemoryCache(0), err
	}
	return NewMemoryCache(0), nil
}
