package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"twoziq/internal/config"
	"twoziq/internal/errors"
)

const (
	pruneInterval = 5 * time.Minute
	clientIdleTTL = 10 * time.Minute
)

// clientLimiter tracks one client's token bucket.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters holds per-IP buckets. Stale entries are pruned lazily on access
// so the middleware owns no background goroutine and can be constructed
// freely.
type ipLimiters struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastPrune time.Time

	perSecond rate.Limit
	burst     int
}

func newIPLimiters(cfg config.RateLimitConfig) *ipLimiters {
	return &ipLimiters{
		clients:   make(map[string]*clientLimiter),
		lastPrune: time.Now(),
		perSecond: rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
		burst:     cfg.Burst,
	}
}

// get returns the bucket for ip, creating it on first sight and dropping
// idle clients at most once per prune interval.
func (l *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) >= pruneInterval {
		l.lastPrune = now
		for addr, cl := range l.clients {
			if now.Sub(cl.lastSeen) > clientIdleTTL {
				delete(l.clients, addr)
			}
		}
	}

	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit applies a per-client-IP token bucket.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newIPLimiters(cfg)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP(), time.Now()).Allow() {
			err := errors.NewAppError(errors.ErrCodeRateLimit, "Rate limit exceeded", nil).
				WithRequestID(RequestID(c))
			writeError(c, err)
			return
		}
		c.Next()
	}
}
