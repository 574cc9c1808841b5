package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinashop/storefront/pkg/config"
	"github.com/vinashop/storefront/pkg/ratelimit"
)

// fakeLimiter 记录每次判定的 key，按预设结果放行或拒绝
type fakeLimiter struct {
	keys    []string
	allowed bool
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ ratelimit.Limit) (*ratelimit.Result, error) {
	f.keys = append(f.keys, key)
	return &ratelimit.Result{Allowed: f.allowed, Remaining: 1}, nil
}

func rateLimitRouter(limiter ratelimit.Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(UserID(), RateLimit(limiter, config.RateLimitConfig{Enabled: true, QPS: 10, Burst: 20}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRateLimitKeyedByUser(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	router := rateLimitRouter(limiter)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "ratelimit:user:u1", limiter.keys[0], "logged-in requests count per user")
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	router := rateLimitRouter(limiter)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "ratelimit:ip:10.0.0.9", limiter.keys[0], "anonymous requests count per client ip")
}

func TestRateLimitRejectsWhenExceeded(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	router := rateLimitRouter(limiter)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
