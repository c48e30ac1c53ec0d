package middleware

import (
	"net/http"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/adapters/transport/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimitPerIP rejects clients that exhaust their token bucket.
func RateLimitPerIP(limiter *ratelimit.PerKey) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, bodyWithCode("rate_limited", "rate limit exceeded"))
			return
		}
		c.Next()
	}
}
