package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinLimit(t *testing.T) {
	limiter := NewClientRateLimiter(100, time.Hour)

	for i := 0; i < 100; i++ {
		allowed, _ := limiter.Allow("10.0.0.1")
		require.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, retryAfter := limiter.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Hour)
}

func TestAllowIsPerClient(t *testing.T) {
	limiter := NewClientRateLimiter(1, time.Hour)

	allowed, _ := limiter.Allow("10.0.0.1")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("10.0.0.1")
	require.False(t, allowed)

	// A different client has its own budget.
	allowed, _ = limiter.Allow("10.0.0.2")
	assert.True(t, allowed)
}

func TestAllowWindowSlides(t *testing.T) {
	limiter := NewClientRateLimiter(2, time.Hour)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	allowed, _ := limiter.Allow("10.0.0.1")
	require.True(t, allowed)
	current = current.Add(30 * time.Minute)
	allowed, _ = limiter.Allow("10.0.0.1")
	require.True(t, allowed)

	allowed, retryAfter := limiter.Allow("10.0.0.1")
	require.False(t, allowed)
	assert.Equal(t, 30*time.Minute, retryAfter)

	// The first request slides out of the window and frees one slot.
	current = current.Add(31 * time.Minute)
	allowed, _ = limiter.Allow("10.0.0.1")
	assert.True(t, allowed)
}

func TestSweepDropsIdleClients(t *testing.T) {
	limiter := NewClientRateLimiter(10, time.Hour)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")
	require.Len(t, limiter.clients, 2)

	current = current.Add(2 * time.Hour)
	limiter.Allow("10.0.0.2")
	limiter.sweep()

	assert.Len(t, limiter.clients, 1)
	assert.Contains(t, limiter.clients, "10.0.0.2")
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewClientRateLimiter(2, time.Hour)
	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)

	third := do()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.NotEmpty(t, third.Header().Get("Retry-After"))
}
