package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxLoginBody = 16 << 10

// AttemptLimiter counts sign-in attempts per identifier. The Redis login
// limiter satisfies it.
type AttemptLimiter interface {
	Allow(ctx context.Context, id string) (bool, error)
	Reset(ctx context.Context, id string) error
}

// readCloser replays the peeked prefix ahead of the unread body.
type readCloser struct {
	io.Reader
	io.Closer
}

// LoginLimit throttles sign-in attempts per login (hashed) or, when the body
// names none, per client IP. Limiter failures let the request through.
func LoginLimit(limiter AttemptLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLoginBody))
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(raw), c.Request.Body), Closer: c.Request.Body}

		var cred struct {
			Email *string `json:"email"`
			Phone *string `json:"phone"`
		}
		_ = json.Unmarshal(raw, &cred)
		id := service.Credentials{Email: cred.Email, Phone: cred.Phone}.Digest()
		if id == "" {
			id = "ip:" + c.ClientIP()
		}

		ok, err := limiter.Allow(c.Request.Context(), id)
		if err != nil {
			log.Warn("login limiter unavailable", zap.Error(err))
			ok = true
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, bodyWithCode("too_many_attempts", "Too many login attempts, try again later"))
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := limiter.Reset(c.Request.Context(), id); err != nil {
				log.Warn("login limiter reset failed", zap.Error(err))
			}
		}
	}
}
