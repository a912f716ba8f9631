package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cameronkey/petproduct-sp-ecom/metrics"
)

type limiterEntry struct {
	limiter     *rate.Limiter
	windowStart time.Time
	lastSeen    time.Time
}

// RateLimiter hands out one token bucket per client IP. With a window set,
// each bucket is replaced when its window ends, so an IP gets at most burst
// requests per window. Buckets that have not been touched for ttl are
// dropped by a background cleanup loop.
type RateLimiter struct {
	ips    map[string]*limiterEntry
	mu     sync.Mutex
	rate   rate.Limit
	burst  int
	window time.Duration
	ttl    time.Duration
	now    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(r rate.Limit, b int, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		ips:   make(map[string]*limiterEntry),
		rate:  r,
		burst: b,
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// NewWindowLimiter allows max requests per fixed window for each IP. The
// bucket refills no faster than once per window and is reset when the
// window ends.
func NewWindowLimiter(max int, window time.Duration) *RateLimiter {
	ttl := window
	if ttl < time.Minute {
		ttl = time.Minute
	}
	rl := NewRateLimiter(rate.Every(window), max, ttl)
	rl.window = window
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for ip, e := range rl.ips {
				if now.Sub(e.lastSeen) > rl.ttl {
					delete(rl.ips, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// entry must be called with rl.mu held.
func (rl *RateLimiter) entry(ip string, now time.Time) *limiterEntry {
	e, exists := rl.ips[ip]
	if !exists || (rl.window > 0 && now.Sub(e.windowStart) >= rl.window) {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst), windowStart: now}
		rl.ips[ip] = e
	}
	e.lastSeen = now
	return e
}

// Allow reports whether ip may make another request now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	return rl.entry(ip, now).limiter.AllowN(now, 1)
}

// RateLimitMiddleware rejects over-limit clients with 429 and a retryAfter
// hint in seconds. name labels the rejection metric.
func RateLimitMiddleware(rl *RateLimiter, name, message string, retryAfter time.Duration) gin.HandlerFunc {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			metrics.RateLimited.WithLabelValues(name).Inc()
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      message,
				"retryAfter": seconds,
			})
			return
		}
		c.Next()
	}
}
