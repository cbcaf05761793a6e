// internal/middleware/rate_limit_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"abiahub/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestLimiter(burst, sustained int) *RateLimiter {
	cfg := &config.Config{
		RateLimitEnabled:    true,
		AuthBurstPerMinute:  burst,
		AuthSustainedPerDay: sustained,
		AnonBurstPerMinute:  burst,
		AnonSustainedPerDay: sustained,
	}
	return NewRateLimiter(cfg)
}

func TestAllowWithinBurst(t *testing.T) {
	rl := newTestLimiter(3, 100)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		ok, _ := rl.allow("ip:1.2.3.4", 3, 100)
		assert.True(t, ok, "request %d", i)
	}

	ok, retry := rl.allow("ip:1.2.3.4", 3, 100)
	assert.False(t, ok)
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 61)
}

func TestAllowSustainedLimit(t *testing.T) {
	rl := newTestLimiter(100, 5)
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		ok, _ := rl.allow("user:abc", 100, 5)
		assert.True(t, ok)
	}

	ok, retry := rl.allow("user:abc", 100, 5)
	assert.False(t, ok)
	// The day window is what ran out, so the hint is much longer than a minute.
	assert.Greater(t, retry, 60)
}

func TestAllowSeparateKeys(t *testing.T) {
	rl := newTestLimiter(1, 100)
	defer rl.Stop()

	ok, _ := rl.allow("ip:1.1.1.1", 1, 100)
	assert.True(t, ok)
	ok, _ = rl.allow("ip:1.1.1.1", 1, 100)
	assert.False(t, ok)

	// A different client is unaffected.
	ok, _ = rl.allow("ip:2.2.2.2", 1, 100)
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := newTestLimiter(2, 100)
	defer rl.Stop()

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewareKeysUsersSeparately(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := newTestLimiter(1, 100)
	defer rl.Stop()

	userID := primitive.NewObjectID()
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-Auth") != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	router.Use(rl.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Anonymous request consumes the IP quota.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// The authenticated user has their own bucket from the same IP.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Test-Auth", "1")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		RateLimitEnabled:   false,
		AnonBurstPerMinute: 1,
	}
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
