// internal/middleware/cache_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func notDetail(string) bool { return false }

func newCachedRouter(rc *ResponseCache) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)

	hits := 0
	router := gin.New()
	router.Use(rc.Middleware(notDetail))
	router.GET("/api/v1/reports", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": hits})
	})
	router.GET("/api/v1/broken", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	router.POST("/api/v1/reports", func(c *gin.Context) {
		hits++
		c.Status(http.StatusCreated)
	})
	return router, &hits
}

func TestCacheHit(t *testing.T) {
	rc := NewResponseCache()
	router, hits := newCachedRouter(rc)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, *hits)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, *hits, "second request must be served from cache")
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestCacheKeyIncludesQueryString(t *testing.T) {
	rc := NewResponseCache()
	router, hits := newCachedRouter(rc)

	for i, path := range []string{
		"/api/v1/reports?page=1",
		"/api/v1/reports?page=2",
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, i+1, *hits)
	}
}

func TestCacheSkipsErrors(t *testing.T) {
	rc := NewResponseCache()
	router, hits := newCachedRouter(rc)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/broken", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
	assert.Equal(t, 2, *hits, "error responses must not be cached")
}

func TestCacheSkipsWrites(t *testing.T) {
	rc := NewResponseCache()
	router, hits := newCachedRouter(rc)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Equal(t, 2, *hits)
}

func TestCacheSkipsAuthenticatedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rc := NewResponseCache()
	hits := 0
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", primitive.NewObjectID())
		c.Next()
	})
	router.Use(rc.Middleware(notDetail))
	router.GET("/api/v1/reports", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": strconv.Itoa(hits)})
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, hits, "authenticated views must never be shared")
}

func TestInvalidate(t *testing.T) {
	rc := NewResponseCache()
	router, hits := newCachedRouter(rc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, 1, *hits)

	rc.Invalidate("/api/v1/reports")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, 2, *hits, "invalidated entry must be rebuilt")
}

func TestInvalidateIsPrefixScoped(t *testing.T) {
	rc := NewResponseCache()
	router, hits := newCachedRouter(rc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, 1, *hits)

	// Unrelated prefix leaves the entry alone.
	rc.Invalidate("/api/v1/proposals")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, 1, *hits)
}
