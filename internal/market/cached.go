package market

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"twoziq/internal/cache"
	"twoziq/internal/logger"
)

// CachedProvider is a read-through cache in front of a Provider. Concurrent
// identical requests are collapsed via singleflight so at most one fetch is
// in flight per (ticker, parameter) key.
type CachedProvider struct {
	inner Provider
	cache cache.Cacher
	ttl   time.Duration
	group singleflight.Group
	log   logger.Logger
}

// NewCachedProvider wraps a provider with a cache tier.
func NewCachedProvider(inner Provider, c cache.Cacher, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: c,
		ttl:   ttl,
		log:   logger.GetGlobalLogger().WithField("component", "market_cache"),
	}
}

type cachedSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// History implements Provider with caching and request deduplication.
func (cp *CachedProvider) History(ctx context.Context, ticker string, start, end time.Time) (*PriceSeries, error) {
	key := fmt.Sprintf("history:%s:%s:%s", ticker, formatKeyDate(start), formatKeyDate(end))

	var cached cachedSeries
	if err := cp.cache.GetJSON(ctx, key, &cached); err == nil {
		return &PriceSeries{Ticker: cached.Ticker, Points: cached.Points}, nil
	}

	v, err, _ := cp.group.Do(key, func() (interface{}, error) {
		series, err := cp.inner.History(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		if err := cp.cache.SetJSON(ctx, key, cachedSeries{Ticker: series.Ticker, Points: series.Points}, cp.ttl); err != nil {
			cp.log.Warn("failed to cache price history", "ticker", ticker, "error", err)
		}
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PriceSeries), nil
}

// Quote implements Provider with caching and request deduplication.
func (cp *CachedProvider) Quote(ctx context.Context, ticker string) (*Quote, error) {
	key := "quote:" + ticker

	var cached Quote
	if err := cp.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := cp.group.Do(key, func() (interface{}, error) {
		q, err := cp.inner.Quote(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if err := cp.cache.SetJSON(ctx, key, q, cp.ttl); err != nil {
			cp.log.Warn("failed to cache quote", "ticker", ticker, "error", err)
		}
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Quote), nil
}

func formatKeyDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(DateLayout)
}
