// internal/middleware/cache.go
package middleware

import (
	"bytes"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type cacheEntry struct {
	status      int
	contentType string
	body        []byte
	expiresAt   time.Time
}

// ResponseCache is an in-memory cache for GET responses. List endpoints
// are cached for ListTTL, detail endpoints for DetailTTL; any write to a
// prefix invalidates everything cached under it.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	ListTTL   time.Duration
	DetailTTL time.Duration
}

func NewResponseCache() *ResponseCache {
	rc := &ResponseCache{
		entries:   make(map[string]cacheEntry),
		ListTTL:   5 * time.Minute,
		DetailTTL: 1 * time.Minute,
	}
	go rc.evictLoop()
	return rc
}

func (rc *ResponseCache) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		rc.mu.Lock()
		for key, e := range rc.entries {
			if now.After(e.expiresAt) {
				delete(rc.entries, key)
			}
		}
		rc.mu.Unlock()
	}
}

func (rc *ResponseCache) get(key string) (cacheEntry, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	e, ok := rc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return cacheEntry{}, false
	}
	return e, true
}

func (rc *ResponseCache) set(key string, e cacheEntry) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries[key] = e
}

// Invalidate drops all cached responses whose path starts with prefix.
func (rc *ResponseCache) Invalidate(prefix string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for key := range rc.entries {
		if strings.HasPrefix(key, prefix) {
			delete(rc.entries, key)
		}
	}
}

type cacheWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware caches successful GET responses. isDetail decides which TTL
// applies for a given request path.
func (rc *ResponseCache) Middleware(isDetail func(path string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		// Per-user views must not leak between users.
		key := c.Request.URL.RequestURI()
		if _, authed := c.Get("user_id"); authed {
			c.Next()
			return
		}

		if e, ok := rc.get(key); ok {
			c.Header("X-Cache", "HIT")
			c.Data(e.status, e.contentType, e.body)
			c.Abort()
			return
		}

		writer := &cacheWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		if writer.Status() != http.StatusOK {
			return
		}

		ttl := rc.ListTTL
		if isDetail(c.Request.URL.Path) {
			ttl = rc.DetailTTL
		}

		rc.set(key, cacheEntry{
			status:      writer.Status(),
			contentType: writer.Header().Get("Content-Type"),
			body:        writer.buf.Bytes(),
			expiresAt:   time.Now().Add(ttl),
		})
	}
}
