package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	redisc "socialapi/internal/redis"
)

// RateLimiter enforces a per-IP request budget. With a Redis client the
// count is a shared fixed-window counter, so a multi-instance deployment
// sees one budget per client; without one it falls back to an in-process
// token bucket per IP.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration

	mu      sync.Mutex
	local   map[string]*rate.Limiter
	lastHit map[string]time.Time
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		rdb:     rdb,
		limit:   limit,
		window:  window,
		local:   make(map[string]*rate.Limiter),
		lastHit: make(map[string]time.Time),
	}
	if rdb == nil {
		go rl.cleanupLocal()
	}
	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.allow(ip) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	if rl.rdb != nil {
		count, err := redisc.Hit(rl.rdb, "ratelimit:"+ip, rl.window)
		if err != nil {
			// Fail open: a broken counter should not take the API down.
			slog.Warn("rate limit counter unavailable", "error", err)
			return true
		}
		return count <= int64(rl.limit)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.local[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit)
		rl.local[ip] = lim
	}
	rl.lastHit[ip] = time.Now()
	return lim.Allow()
}

// cleanupLocal drops idle per-IP limiters so the map does not grow without
// bound.
func (rl *RateLimiter) cleanupLocal() {
	for range time.Tick(rl.window) {
		rl.mu.Lock()
		cutoff := time.Now().Add(-2 * rl.window)
		for ip, last := range rl.lastHit {
			if last.Before(cutoff) {
				delete(rl.local, ip)
				delete(rl.lastHit, ip)
			}
		}
		rl.mu.Unlock()
	}
}
