package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/criteo/social-connect/internal/apierrors"
)

const idleClientTTL = 2 * time.Minute

// rateLimiter is a per-IP token bucket refilled continuously at limit per minute
type rateLimiter struct {
	mu        sync.Mutex
	limit     float64
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time

	trustProxy bool
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows limit requests per minute per client IP.
// Forwarding headers name the client only when trustProxy is set.
// onLimited, when set, is called for every rejected request.
func NewRateLimiter(limit int, trustProxy bool, onLimited func()) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, time.Now)
	rl.trustProxy = trustProxy
	return rl.middleware(onLimited)
}

func newRateLimiter(limit int, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		limit:     float64(limit),
		buckets:   make(map[string]*bucket),
		lastSweep: now(),
		now:       now,
	}
}

func (rl *rateLimiter) middleware(onLimited func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wait, ok := rl.allow(getClientIP(r, rl.trustProxy)); !ok {
				if onLimited != nil {
					onLimited()
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds()+0.999)))
				apierrors.WriteError(w, apierrors.ErrCodeRateLimited, "Too many requests", http.StatusTooManyRequests, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow takes a token for ip, or reports how long until one is available
func (rl *rateLimiter) allow(ip string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= time.Minute {
		rl.sweep(now)
	}

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.limit, seen: now}
		rl.buckets[ip] = b
	}

	b.tokens = min(rl.limit, b.tokens+now.Sub(b.seen).Seconds()*rl.limit/60)
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	return time.Duration((1 - b.tokens) * 60 / rl.limit * float64(time.Second)), false
}

// sweep forgets clients idle long enough to have a full bucket again
func (rl *rateLimiter) sweep(now time.Time) {
	for ip, b := range rl.buckets {
		if now.Sub(b.seen) > idleClientTTL {
			delete(rl.buckets, ip)
		}
	}
	rl.lastSweep = now
}

// getClientIP returns the connection's address. Behind a trusted proxy the
// X-Forwarded-For and X-Real-IP headers take precedence.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
