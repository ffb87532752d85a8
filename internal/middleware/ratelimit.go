package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/clinical-scoring-server/internal/domain"
)

// clientLimiter tracks a per-client token bucket and its last use.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP using token buckets. Idle
// clients are evicted after staleAfter so the map stays bounded.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*clientLimiter
	rps        rate.Limit
	burst      int
	staleAfter time.Duration
}

// NewRateLimiter creates a per-client rate limiter from the configuration.
func NewRateLimiter(config domain.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		clients:    make(map[string]*clientLimiter),
		rps:        rate.Limit(config.RequestsPerSecond),
		burst:      config.Burst,
		staleAfter: 10 * time.Minute,
	}
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":          "rate limit exceeded",
				"correlation_id": c.GetString("correlation_id"),
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, ok := rl.clients[clientIP]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientIP] = client
	}
	client.lastSeen = now

	// Opportunistic eviction keeps the map from growing unbounded.
	if len(rl.clients) > 1024 {
		for ip, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > rl.staleAfter {
				delete(rl.clients, ip)
			}
		}
	}

	return client.limiter.Allow()
}
