package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vinashop/storefront/pkg/config"
	"github.com/vinashop/storefront/pkg/ratelimit"
)

// rateKey 限流维度：登录用户按用户标识计数，匿名请求退回客户端 IP
func rateKey(c *gin.Context) string {
	if userID := CurrentUserID(c); userID != "" {
		return fmt.Sprintf("ratelimit:user:%s", userID)
	}
	return fmt.Sprintf("ratelimit:ip:%s", c.ClientIP())
}

// RateLimit 请求限流中间件，须挂在 UserID 之后
func RateLimit(limiter ratelimit.Limiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		limit := ratelimit.PerSecond(cfg.QPS, cfg.Burst)
		res, err := limiter.Allow(c.Request.Context(), rateKey(c), limit)
		if err != nil {
			// 限流器不可用时放行，不把 Redis 故障放大成全站拒绝
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetAfter/time.Second), 10))

		if !res.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(res.RetryAfter/time.Second), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
			})
			return
		}

		c.Next()
	}
}
