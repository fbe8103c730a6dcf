package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"simplyinvoicing/api/internal/config"
)

const (
	cleanupInterval = 10 * time.Minute
	clientMaxIdle   = 30 * time.Minute
)

// clientLimiter stores the token bucket of a specific client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware manages per-client rate limiting for API endpoints.
type RateLimiterMiddleware struct {
	clients    map[string]*clientLimiter
	mu         sync.Mutex
	refillRate rate.Limit
	bucketSize int
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware from the
// configured bucket size and refill rate (tokens per second).
func NewRateLimiterMiddleware(cfg *config.Config) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients:    make(map[string]*clientLimiter),
		refillRate: rate.Limit(cfg.RateLimitRefillRate),
		bucketSize: cfg.RateLimitBucketSize,
	}
	go rm.cleanupClients()
	return rm
}

// getClientIdentifier keys clients by IP as resolved by gin's trusted proxies.
func getClientIdentifier(c *gin.Context) string {
	return c.ClientIP()
}

// getClientLimiter retrieves or creates the rate limiter for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{limiter: rate.NewLimiter(rm.refillRate, rm.bucketSize)}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

func (rm *RateLimiterMiddleware) cleanupClients() {
	for {
		time.Sleep(cleanupInterval)
		if count := rm.RemoveIdle(clientMaxIdle); count > 0 {
			log.WithField("removed", count).Debug("Rate limiter cleanup removed old client entries")
		}
	}
}

// RemoveIdle drops clients not seen within maxIdle and returns how many were removed.
func (rm *RateLimiterMiddleware) RemoveIdle(maxIdle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if time.Since(client.lastSeen) > maxIdle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		limiter := rm.getClientLimiter(clientKey)

		if !limiter.limiter.Allow() {
			log.WithFields(log.Fields{"client": clientKey, "path": c.FullPath()}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Rate limit exceeded", "code": "resource-exhausted"})
			return
		}

		c.Next()
	}
}
