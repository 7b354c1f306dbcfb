// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the token-bucket rate limiter that sits in front of the
// helpdesk API. Every caller gets its own bucket, keyed by user ID for
// authenticated traffic and by client IP for anonymous traffic such as login
// attempts. Buckets refill continuously and idle ones are swept so the map
// stays bounded. The limiter is process-local, which matches the
// single-container deployments this service targets; a horizontally scaled
// install needs a shared store (Redis or similar) to enforce a global limit.
// Replays flagged by IdempotencyValidator pass through without spending
// tokens, so retrying a ticket POST with the same Idempotency-Key is free.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to the identity whose bucket it drains. The key must
// be stable for the duration of the request.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys authenticated requests by the "userID" context value set
// by RequireAuth and everything else by client IP. The prefixes keep the two
// namespaces from colliding.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

const (
	// bucketIdleTTL is how long an untouched bucket survives a sweep.
	bucketIdleTTL = 10 * time.Minute
	// sweepEvery is the number of lookups between idle-bucket sweeps.
	sweepEvery = 5000
)

// bucket pairs a limiter with the last time its key was seen.
type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter enforces a per-identity token bucket. Buckets are created on
// first use and evicted after idleTTL of inactivity. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc

	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
	lookups uint64
}

// NewRateLimiter builds a limiter replenishing rps tokens per second with the
// given burst capacity, keyed by keyFn. A burst below 1 is coerced to 1 so a
// misconfigured limiter still admits traffic one request at a time.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: make(map[string]*bucket),
		idleTTL: bucketIdleTTL,
	}
}

// limiterFor returns the bucket for key, creating it when absent. Every
// sweepEvery-th lookup first evicts buckets idle for idleTTL or longer. The
// sweep runs before the fetch so a stale bucket cannot be refreshed by the
// very lookup that should evict it.
func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		rl.lookups = 0
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
	}

	if b, ok := rl.buckets[key]; ok {
		b.seen = now
		return b.lim
	}
	b := &bucket{lim: rate.NewLimiter(rl.rps, rl.burst), seen: now}
	rl.buckets[key] = b
	return b.lim
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay of an already-completed write. Handler serves such requests without
// consuming tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware enforcing the limit. A rejected request
// receives 429 with the standard error envelope and Retry-After: 1, matching
// the one-second granularity of the token refill.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		if rl.limiterFor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
