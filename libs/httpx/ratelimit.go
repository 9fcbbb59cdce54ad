package httpx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter decides whether a caller identified by key may proceed.
// Implementations: in-process fixed window (below) and Redis-backed
// (ratelimit_redis.go) for multi-instance deployments.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// WithRateLimit applies a limiter keyed by client IP. failOpen controls the
// behavior when the limiter itself errors (Redis down).
func WithRateLimit(l Limiter, logger *slog.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), clientKey(r))
			if err != nil {
				if logger != nil {
					logger.Warn("rate limiter error", "err", err)
				}
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}
			if !ok {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type memoryLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*windowState
}

type windowState struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) Limiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryLimiter{
		limit:   limit,
		window:  window,
		windows: map[string]*windowState{},
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w := l.windows[key]
	if w == nil || now.After(w.resetAt) {
		// Piggyback expired-entry cleanup on writes; the map stays bounded
		// by the number of distinct callers per window.
		for k, st := range l.windows {
			if now.After(st.resetAt) {
				delete(l.windows, k)
			}
		}
		l.windows[key] = &windowState{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
