package middlewares

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// TokenBucket throttles per client IP with a token bucket; used on login
// where bursts are normal but sustained guessing is not.
type TokenBucket struct {
	mu       sync.Mutex
	limiters map[string]*bucketEntry
	rps      rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		limiters: make(map[string]*bucketEntry),
		rps:      rate.Limit(perSecond),
		burst:    burst,
		ttl:      15 * time.Minute,
		now:      time.Now,
	}
}

func (b *TokenBucket) limiter(key string) *rate.Limiter {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	// drop idle entries so the map stays bounded
	for k, e := range b.limiters {
		if now.Sub(e.lastSeen) > b.ttl {
			delete(b.limiters, k)
		}
	}

	l := rate.NewLimiter(b.rps, b.burst)
	b.limiters[key] = &bucketEntry{limiter: l, lastSeen: now}
	return l
}

func (b *TokenBucket) Allow(key string) bool {
	return b.limiter(key).AllowN(b.now(), 1)
}

func (b *TokenBucket) Middleware() gin.HandlerFunc {
	retryAfter := "60"
	if b.rps > 0 {
		retryAfter = strconv.Itoa(int(1/float64(b.rps)) + 1)
	}

	return func(c *gin.Context) {
		if !b.Allow(clientIP(c)) {
			c.Header("Retry-After", retryAfter)
			abortError(c, http.StatusTooManyRequests, "rate_limited", "Too many login attempts. Please try again later.")
			return
		}
		c.Next()
	}
}
