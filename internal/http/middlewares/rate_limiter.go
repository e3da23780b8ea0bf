package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// WindowDecision is the outcome of one hit against a fixed window.
type WindowDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// WindowCounter counts hits per key in fixed windows.
type WindowCounter interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (WindowDecision, error)
}

func decide(count, limit int, reset time.Duration) WindowDecision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	if reset < 0 {
		reset = 0
	}
	return WindowDecision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
	}
}

// MemoryWindow is a per-process fixed window. Counts are not shared
// between replicas.
type MemoryWindow struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryWindow() *MemoryWindow {
	return &MemoryWindow{
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (w *MemoryWindow) Hit(_ context.Context, key string, limit int, window time.Duration) (WindowDecision, error) {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		// opportunistic sweep so abandoned keys don't pile up
		if !ok && len(w.clients) > 10000 {
			for k, old := range w.clients {
				if !now.Before(old.windowEnd) {
					delete(w.clients, k)
				}
			}
		}
		b = &clientBucket{windowEnd: now.Add(window)}
		w.clients[key] = b
	}

	b.count++
	return decide(b.count, limit, b.windowEnd.Sub(now)), nil
}

// atomic INCR + PEXPIRE on first hit; returns {count, pttl}
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RedisWindow shares counts across replicas. When redis is unreachable it
// degrades to a local window instead of failing open.
type RedisWindow struct {
	rdb      redis.Scripter
	fallback *MemoryWindow
	log      *slog.Logger
}

func NewRedisWindow(rdb redis.Scripter, log *slog.Logger) *RedisWindow {
	if log == nil {
		log = slog.Default()
	}
	return &RedisWindow{rdb: rdb, fallback: NewMemoryWindow(), log: log}
}

func (w *RedisWindow) Hit(ctx context.Context, key string, limit int, window time.Duration) (WindowDecision, error) {
	res, err := incrExpireScript.Run(ctx, w.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		w.log.WarnContext(ctx, "ratelimit.redis_unavailable", "err", err)
		return w.fallback.Hit(ctx, key, limit, window)
	}

	return decide(int(res[0]), limit, time.Duration(res[1])*time.Millisecond), nil
}

type KeyFunc func(c *gin.Context) string

// RateLimit enforces limit hits per window per key and sets the
// X-RateLimit-* headers.
func RateLimit(counter WindowCounter, limit int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	if counter == nil || limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if keyFn == nil {
		keyFn = KeyByIP("rl")
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		d, err := counter.Hit(c.Request.Context(), keyFn(c), limit, window)
		if err != nil {
			c.Next()
			return
		}

		resetSec := int((d.Reset + time.Second - 1) / time.Second)

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(resetSec))
			abortError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.")
			return
		}

		c.Next()
	}
}

// KeyByIP keys unauthenticated endpoints by client IP under prefix.
func KeyByIP(prefix string) KeyFunc {
	return func(c *gin.Context) string {
		return prefix + ":ip:" + clientIP(c)
	}
}

func clientIP(c *gin.Context) string {
	// gin's ClientIP respects X-Forwarded-For only for trusted proxies
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}
	if ip == "" {
		return "unknown"
	}
	return ip
}
