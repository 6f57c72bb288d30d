package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/agenthive/auth-service/internal/autherr"
	"github.com/agenthive/auth-service/internal/http/response"
)

// RateLimiter is a fixed-window per-client limiter for the credential
// endpoints. State is process-local; the redis abuse guard handles the
// per-identity cooldown separately.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	sweep  time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		sweep:  time.Now().Add(window),
	}
}

func (l *RateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweep) {
		for k, hits := range l.hits {
			if len(hits) == 0 || now.Sub(hits[len(hits)-1]) > l.window {
				delete(l.hits, k)
			}
		}
		l.sweep = now.Add(l.window)
	}

	hits := l.hits[key]
	cutoff := now.Add(-l.window)
	kept := hits[:0]
	for _, h := range hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	if len(kept) >= l.limit {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				key = r.RemoteAddr
			}
			if !l.allow(key) {
				w.Header().Set("Retry-After", l.window.String())
				response.AuthError(w, autherr.TooManyLoginAttempts)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
