package ratelimit

import (
	"sync"
	"time"

	"PriceCast/pkg/config"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key. Idle keys are forgotten after the TTL.
type Limiter struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
}

func New(perSecond float64, burst, maxKeys int, ttl time.Duration) *Limiter {
	return &Limiter{
		buckets: expirable.NewLRU[string, *rate.Limiter](maxKeys, nil, ttl),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

// NewFromConfig sizes the limiter for the configured sessions.
func NewFromConfig(cfg *config.Config) *Limiter {
	return New(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, cfg.Session.MaxEntries, cfg.Session.TTL)
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets.Get(key)
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(key, b)
	}
	l.mu.Unlock()
	return b.Allow()
}
