package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/goatkit/warrantyflow/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// RATE LIMITER CORE TESTS
// =============================================================================

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(0.001, 5)
	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("k"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("k"), "request over burst should be blocked")
}

func TestRateLimiter_DifferentKeysHaveSeparateLimits(t *testing.T) {
	rl := NewRateLimiter(0.001, 3)
	for i := 0; i < 3; i++ {
		rl.Allow("key1")
	}
	assert.False(t, rl.Allow("key1"))
	assert.True(t, rl.Allow("key2"))
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(0.001, 10)
	assert.Equal(t, 10, rl.Remaining("unknown"))
	for i := 0; i < 3; i++ {
		rl.Allow("k")
	}
	assert.Equal(t, 7, rl.Remaining("k"))
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
	now = now.Add(time.Second)
	assert.True(t, rl.Allow("k"))
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(rl.idle + time.Minute)
	rl.Allow("new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "old")
	assert.Contains(t, rl.visitors, "new")
}

// =============================================================================
// MIDDLEWARE INTEGRATION TESTS
// =============================================================================

func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(pre...)
	router.Use(RateLimit(rl))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func doGet(router http.Handler, remote string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_AddsHeaders(t *testing.T) {
	w := doGet(limitedRouter(NewRateLimiter(1, 10)), "192.168.1.100:12345")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddleware_BlocksPerIP(t *testing.T) {
	router := limitedRouter(NewRateLimiter(0.001, 2))
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doGet(router, "10.0.0.1:12345").Code)
	}

	w := doGet(router, "10.0.0.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "core:rate_limited")

	assert.Equal(t, http.StatusOK, doGet(router, "10.0.0.2:12345").Code)
}

func TestRateLimitMiddleware_KeysAuthenticatedCallersBySubject(t *testing.T) {
	subject := "bridge-a"
	setClaims := func(c *gin.Context) {
		c.Set(claimsKey, &auth.Claims{Role: auth.RoleBridge, RegisteredClaims: registered(subject)})
		c.Next()
	}
	router := limitedRouter(NewRateLimiter(0.001, 1), setClaims)

	assert.Equal(t, http.StatusOK, doGet(router, "10.0.0.1:1").Code)
	// Same subject from another address shares the bucket.
	assert.Equal(t, http.StatusTooManyRequests, doGet(router, "10.0.0.9:1").Code)

	subject = "bridge-b"
	assert.Equal(t, http.StatusOK, doGet(router, "10.0.0.1:1").Code)
}
