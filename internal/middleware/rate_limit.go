// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"abiahub/internal/config"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// rateWindow tracks request timestamps for one client over the burst
// (one minute) and sustained (one day) windows.
type rateWindow struct {
	minute []time.Time
	day    []time.Time
}

// RateLimiter enforces a two-tier sliding window limit. Authenticated
// clients are keyed by user id, anonymous clients by IP, with separate
// quotas for each class.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateWindow
	cfg     *config.Config
	done    chan struct{}
}

func NewRateLimiter(cfg *config.Config) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*rateWindow),
		cfg:     cfg,
		done:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) Stop() {
	close(rl.done)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	dayAgo := time.Now().Add(-24 * time.Hour)
	for key, w := range rl.clients {
		w.day = pruneOlder(w.day, dayAgo)
		if len(w.day) == 0 {
			delete(rl.clients, key)
		}
	}
}

func pruneOlder(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	return stamps[i:]
}

// allow records the request and reports whether it is within both limits,
// along with a retry-after hint in seconds when it is not.
func (rl *RateLimiter) allow(key string, burstLimit, sustainedLimit int) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.clients[key]
	if !ok {
		w = &rateWindow{}
		rl.clients[key] = w
	}

	w.minute = pruneOlder(w.minute, now.Add(-time.Minute))
	w.day = pruneOlder(w.day, now.Add(-24*time.Hour))

	if len(w.minute) >= burstLimit {
		retry := int(time.Until(w.minute[0].Add(time.Minute)).Seconds()) + 1
		return false, retry
	}
	if len(w.day) >= sustainedLimit {
		retry := int(time.Until(w.day[0].Add(24 * time.Hour)).Seconds()) + 1
		return false, retry
	}

	w.minute = append(w.minute, now)
	w.day = append(w.day, now)
	return true, 0
}

// Middleware applies the limiter. Must run after OptionalAuthMiddleware
// so authenticated users get the higher quota.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.cfg.RateLimitEnabled {
			c.Next()
			return
		}

		var key string
		burst := rl.cfg.AnonBurstPerMinute
		sustained := rl.cfg.AnonSustainedPerDay

		if userID, exists := c.Get("user_id"); exists {
			key = "user:" + userID.(primitive.ObjectID).Hex()
			burst = rl.cfg.AuthBurstPerMinute
			sustained = rl.cfg.AuthSustainedPerDay
		} else {
			key = "ip:" + c.ClientIP()
		}

		ok, retryAfter := rl.allow(key, burst, sustained)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"details": "too many requests, try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
