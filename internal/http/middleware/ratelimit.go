package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// RateLimiter is a per-client token bucket. Idle buckets expire from the
// cache after ten minutes.
type RateLimiter struct {
	mu      sync.Mutex
	buckets *gocache.Cache
	rate    float64 // tokens per second
	burst   int
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets: gocache.New(10*time.Minute, 5*time.Minute),
		rate:    rate,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may make another request now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	var b *bucket
	if v, ok := rl.buckets.Get(key); ok {
		b = v.(*bucket)
	} else {
		b = &bucket{tokens: float64(rl.burst), lastTime: now}
	}

	b.tokens += now.Sub(b.lastTime).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastTime = now
	rl.buckets.SetDefault(key, b)

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RateLimit rejects requests over the limit with 429. Clients are keyed by
// RemoteAddr, which chi's RealIP middleware rewrites when proxied.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}
			if !limiter.Allow(ip) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
