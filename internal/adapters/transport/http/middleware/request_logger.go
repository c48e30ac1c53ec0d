package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func scrub(h http.Header) http.Header {
	clone := h.Clone()
	for k := range clone {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "authorization") || strings.Contains(lk, "cookie") {
			clone[k] = []string{"[redacted]"}
		}
	}
	return clone
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqHeaders, _ := json.Marshal(scrub(c.Request.Header))
		log.Debug("incoming request",
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("origin", c.GetHeader("Origin")),
			zap.ByteString("hdr", reqHeaders),
		)

		ts := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(ts)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("user", CurrentUser(c).String()),
		}

		for _, e := range c.Errors {
			if c.Writer.Status() >= http.StatusInternalServerError {
				log.Error("handler error", append(fields, zap.Error(e))...)
			} else {
				log.Debug("request rejected", append(fields, zap.Error(e))...)
			}
		}

		if c.IsAborted() {
			log.Warn("aborted", fields...)
			return
		}
		log.Info("completed", fields...)
	}
}
