package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a minimum interval between requests per client.
// Entries older than maxIdle are purged lazily to keep the map bounded.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]time.Time
	limit   time.Duration
	maxIdle time.Duration
	sweep   time.Time
}

func NewRateLimiter(limit, maxIdle time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]time.Time),
		limit:   limit,
		maxIdle: maxIdle,
		sweep:   time.Now(),
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader("X-Client-ID")
		if clientID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Client-ID header required"})
			c.Abort()
			return
		}

		now := time.Now()
		r.mu.Lock()
		if now.Sub(r.sweep) > r.maxIdle {
			for id, last := range r.clients {
				if now.Sub(last) > r.maxIdle {
					delete(r.clients, id)
				}
			}
			r.sweep = now
		}
		last, exists := r.clients[clientID]
		if exists && now.Sub(last) < r.limit {
			r.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		r.clients[clientID] = now
		r.mu.Unlock()
		c.Next()
	}
}
