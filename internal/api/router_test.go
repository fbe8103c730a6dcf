package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simplyinvoicing/api/internal/api/handlers"
	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/email"
	"simplyinvoicing/api/internal/metrics"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func serviceCall(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestSetupRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JwtSecret:           "secret",
		CorsAllowedOrigins:  []string{"https://app.example.com"},
		RateLimitBucketSize: 100,
		RateLimitRefillRate: 100,
	}
	m := metrics.New()
	jsonApi := handlers.NewJsonApiHandler(cfg, m, handlers.Services{})
	webhook := handlers.NewWebhookHandler(nil, nil, m)
	router := SetupRouter(cfg, m, jsonApi, webhook)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/ping", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/v1/api", strings.NewReader(`{"method":"ping"}`))
	req.Header.Set("Origin", "https://app.example.com")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), `"pong"`)
}

func TestServiceRouter_GetTestEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rdb := setupRedis(t)
	router := SetupServiceRouter(rdb, nil, make(chan struct{}, 1))

	stored, _ := json.Marshal(map[string]interface{}{"to": []string{"ann@example.com"}, "subject": "Welcome"})
	require.NoError(t, rdb.Set(context.Background(), email.MockEmailKey("ann@example.com", "welcome"), stored, 0).Err())

	w := serviceCall(router, `{"method":"getTestEmail","arguments":["welcome","ann@example.com"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Welcome", resp.Data["subject"])

	// The email is consumed on read.
	exists, err := rdb.Exists(context.Background(), email.MockEmailKey("ann@example.com", "welcome")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestServiceRouter_GetTestEmail_BadArguments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupServiceRouter(setupRedis(t), nil, make(chan struct{}, 1))

	w := serviceCall(router, `{"method":"getTestEmail","arguments":["welcome"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceRouter_Shutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	router := SetupServiceRouter(nil, nil, shutdown)

	w := serviceCall(router, `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signaled")
	}

	w = serviceCall(router, `{"method":"reboot"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServiceRouter_Metrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	m.RPCCallsTotal.WithLabelValues("ping", "ok").Inc()
	router := SetupServiceRouter(nil, m, make(chan struct{}, 1))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "simplyinvoicing_rpc_calls_total")
}
