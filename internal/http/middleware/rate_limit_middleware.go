package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/meetcute/meetcute-auth/internal/http/response"
)

type fixedWindow struct {
	count       int
	windowStart time.Time
}

// RateLimiter is a per-IP fixed-window limiter. Auth endpoints get a
// tighter window than the rest of the API; anything heavier belongs in
// an external gateway, not here.
type RateLimiter struct {
	mu     sync.Mutex
	store  map[string]*fixedWindow
	limit  int
	window time.Duration
	sweep  time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  make(map[string]*fixedWindow),
		limit:  limit,
		window: window,
		sweep:  time.Now().Add(time.Minute),
	}
}

func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.sweep) {
		for k, w := range rl.store {
			if now.Sub(w.windowStart) > rl.window {
				delete(rl.store, k)
			}
		}
		rl.sweep = now.Add(time.Minute)
	}

	w, ok := rl.store[key]
	if !ok || now.Sub(w.windowStart) > rl.window {
		rl.store[key] = &fixedWindow{count: 1, windowStart: now}
		return true, 0
	}
	if w.count >= rl.limit {
		return false, rl.window - now.Sub(w.windowStart)
	}
	w.count++
	return true, 0
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := rl.allow(clientIPKey(r))
			if !allowed {
				w.Header().Set("Retry-After", retryAfterHeader(retryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterHeader(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%d", secs)
}
