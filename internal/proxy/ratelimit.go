package proxy

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gluk-w/claworc/launchpad-ai/internal/respond"
)

type rateLimitWindow struct {
	mu       sync.Mutex
	requests []time.Time
}

// allow drops entries older than window and records a request when fewer
// than limit remain.
func (w *rateLimitWindow) allow(now time.Time, window time.Duration, limit int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-window)
	i := 0
	for i < len(w.requests) && w.requests[i].Before(cutoff) {
		i++
	}
	w.requests = w.requests[i:]
	if len(w.requests) >= limit {
		return false
	}
	w.requests = append(w.requests, now)
	return true
}

// RateLimiter is a sliding one-minute window per account.
type RateLimiter struct {
	perMinute int
	windows   sync.Map // account id -> *rateLimitWindow
	now       func() time.Time
}

// NewRateLimiter allows perMinute requests per account. Zero or less
// disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{perMinute: perMinute, now: time.Now}
}

func (l *RateLimiter) window(accountID string) *rateLimitWindow {
	val, _ := l.windows.LoadOrStore(accountID, &rateLimitWindow{})
	return val.(*rateLimitWindow)
}

// Allow reports whether accountID may make another request now.
func (l *RateLimiter) Allow(accountID string) bool {
	if l.perMinute <= 0 || accountID == "" {
		return true
	}
	return l.window(accountID).allow(l.now(), time.Minute, l.perMinute)
}

// Middleware enforces the limit for the account set by AuthMiddleware.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(GetAccountID(r.Context())) {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			respond.Error(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
