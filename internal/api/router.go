package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/api/handlers"
	"simplyinvoicing/api/internal/api/middleware"
	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/email"
	"simplyinvoicing/api/internal/metrics"
)

// Test email polling on the service API.
const (
	testEmailPollAttempts = 10
	testEmailPollInterval = 200 * time.Millisecond
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, m *metrics.Metrics, jsonApiHandler *handlers.JsonApiHandler, webhookHandler *handlers.WebhookHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if m != nil {
		r.Use(m.GinMiddleware())
	}
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigins))

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	v1 := r.Group("/v1")
	{
		v1.POST("/api", rateLimiter.Limit(), jsonApiHandler.HandleRequest)

		// Signed by the provider; not rate limited so redeliveries are never dropped.
		v1.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
// It is meant for an internal port only.
func SetupServiceRouter(rdb *redis.Client, m *metrics.Metrics, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "data": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Warn("Shutdown channel already signaled")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments)
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail returns and deletes the mock email stored for [kind, address].
// It polls briefly since the email may still be on its way through a task.
func getTestEmail(c *gin.Context, rdb *redis.Client, rawArgs json.RawMessage) {
	if rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis is not available"})
		return
	}

	var args []string
	if err := json.Unmarshal(rawArgs, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
		return
	}
	redisKey := email.MockEmailKey(args[1], args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var emailJSON string
	found := false
	for i := 0; i < testEmailPollAttempts; i++ {
		val, err := rdb.Get(ctx, redisKey).Result()
		if err == nil {
			emailJSON = val
			found = true
			rdb.Del(ctx, redisKey)
			break
		}
		if err != redis.Nil {
			log.WithFields(log.Fields{"key": redisKey, "error": err}).Error("Service API: failed to read test email")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		time.Sleep(testEmailPollInterval)
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
		return
	}

	var emailData map[string]interface{}
	if err := json.Unmarshal([]byte(emailJSON), &emailData); err != nil {
		log.WithFields(log.Fields{"key": redisKey, "error": err}).Error("Service API: failed to parse test email")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})
}
