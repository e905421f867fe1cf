package middleware

import (
	"encoding/json"
	"net"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RealIP extracts the client IP, preferring proxy headers over RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First IP in the chain is the original client
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed windows. The bridge uses it to
// keep a busy view from flooding the inventory backend.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether key is still within limit for the current window, and
// when the window resets.
func (rl *RateLimiter) Allow(key string, limit int, d time.Duration) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.entries[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		rl.entries[key] = w
	}
	w.count++
	return w.count <= limit, w.resetAt
}

// Cleanup removes expired windows and returns how many were dropped.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	n := 0
	for key, w := range rl.entries {
		if !now.Before(w.resetAt) {
			delete(rl.entries, key)
			n++
		}
	}
	return n
}

// RateLimit returns middleware that answers 429 with a JSON error once a
// client exceeds limit requests per window.
func RateLimit(limiter *RateLimiter, limit int, d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, resetAt := limiter.Allow(RealIP(r), limit, d)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(resetAt.Sub(limiter.now()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests, slow down."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter rounds the time left in a window up to whole seconds, at least one.
func retryAfter(left time.Duration) int {
	return max(1, int(math.Ceil(left.Seconds())))
}
