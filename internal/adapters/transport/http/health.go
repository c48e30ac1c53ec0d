package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck = func(ctx context.Context) error

func healthHandler(checks map[string]HealthCheck, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := nethttp.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn("health check failed", zap.String("check", name), zap.Error(err))
				results[name] = "unavailable"
				status = nethttp.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != nethttp.StatusOK {
			state = "unavailable"
		}
		c.JSON(status, gin.H{"status": state, "checks": results, "time": time.Now().Unix()})
	}
}
