package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docuquery/rag-be/types"
)

// ClientRateLimiter is a sliding-window request counter keyed by client
// identifier. Requests over the limit are rejected before any downstream
// work, with a retry-after hint.
type ClientRateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string][]time.Time

	// now is replaceable so tests can drive the clock.
	now func() time.Time
}

func NewClientRateLimiter(limit int, window time.Duration) *ClientRateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Hour
	}
	return &ClientRateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records a request for the client key and reports whether it is
// within the window budget. When rejected, retryAfter is how long until the
// oldest counted request slides out of the window.
func (l *ClientRateLimiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	times := l.clients[key]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.clients[key] = kept
		return false, kept[0].Sub(cutoff)
	}

	l.clients[key] = append(kept, now)
	return true, 0
}

// StartCleanup periodically drops clients whose entire history has slid out
// of the window, so idle keys don't accumulate. Stops when ctx is done.
func (l *ClientRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

func (l *ClientRateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for key, times := range l.clients {
		idle := true
		for _, t := range times {
			if t.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(l.clients, key)
		}
	}
}

// RateLimit rejects requests over the per-client budget with 429 and a
// Retry-After header.
func RateLimit(limiter *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(c.ClientIP())
		if !allowed {
			seconds := int(retryAfter.Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.DataResponse{
				Status:  false,
				Message: types.ErrRateLimitExceeded.Error(),
			})
			return
		}
		c.Next()
	}
}
