package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig tunes the per-IP token bucket guarding the HTTP API.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // idle buckets older than 2x this are evicted
}

// DefaultRateLimitConfig is sized for a stat feed plus a handful of
// spectator dashboards per address.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter holds one token bucket per client IP. Buckets for
// addresses that go quiet are evicted by a background sweep so a churn
// of one-shot clients cannot grow the map without bound.
type IPRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	cfg     RateLimitConfig

	stopChan chan struct{}
	stopOnce sync.Once

	allowed  uint64 // atomic
	rejected uint64 // atomic
}

// NewIPRateLimiter creates the limiter and starts its eviction sweep.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		buckets:  make(map[string]*ipBucket),
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the eviction sweep. Allow keeps working after Stop.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// Allow reports whether a request from ip fits its bucket right now.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &ipBucket{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst),
		}
		rl.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	limiter := b.limiter
	rl.mu.Unlock()

	if limiter.Allow() {
		atomic.AddUint64(&rl.allowed, 1)
		return true
	}
	atomic.AddUint64(&rl.rejected, 1)
	return false
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *IPRateLimiter) evictIdle() {
	cutoff := time.Now().Add(-2 * rl.cfg.CleanupInterval)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// Middleware rejects over-limit requests with 429 before they reach the
// router.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats reports allow/reject counters, surfaced on /api/stats.
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  atomic.LoadUint64(&rl.allowed),
		"rejected": atomic.LoadUint64(&rl.rejected),
	}
}

// GetClientIP resolves the client address, preferring proxy headers.
// X-Forwarded-For is trusted as-is; run behind a proxy that strips
// client-supplied values or the limit keys on attacker input.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter caps concurrent spectator sockets per IP. The
// hub reserves a slot with Allow before the upgrade and must Release it
// when the connection ends, including upgrade failures.
type WebSocketRateLimiter struct {
	mu       sync.Mutex
	open     map[string]int
	maxPerIP int

	rejected uint64 // atomic
}

// NewWebSocketRateLimiter creates a connection cap of maxPerIP sockets.
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{
		open:     make(map[string]int),
		maxPerIP: maxPerIP,
	}
}

// Allow reserves one connection slot for ip, if any remain.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()

	if wrl.open[ip] >= wrl.maxPerIP {
		atomic.AddUint64(&wrl.rejected, 1)
		return false
	}
	wrl.open[ip]++
	return true
}

// Release returns a connection slot. The map entry is dropped at zero
// so departed addresses cost nothing.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()

	if n, ok := wrl.open[ip]; ok {
		if n <= 1 {
			delete(wrl.open, ip)
			return
		}
		wrl.open[ip] = n - 1
	}
}

// IsAllowedOrigin reports whether a WebSocket upgrade origin is
// acceptable: localhost on any port, for the bundled dashboard.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1")
}
