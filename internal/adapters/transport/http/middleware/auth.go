package middleware

import (
	"strings"

	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/app/auth/service"
	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// ErrorFunc renders a failure raised inside a middleware.
type ErrorFunc func(c *gin.Context, err error)

// Authentication attaches the bearer token's user to the request. Requests
// without an Authorization header continue anonymously; a bad header or
// token goes to onError and the chain stops.
func Authentication(codec *jwt.Codec, onError ErrorFunc) gin.HandlerFunc {
	if onError == nil {
		onError = AbortAuth
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(currentUserKey, model.CurrentUser{})
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			onError(c, customErrors.NewInvalidToken("Invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := codec.Decode(strings.TrimSpace(token))
		if err != nil {
			onError(c, err)
			c.Abort()
			return
		}
		id, ok := claims.UserID()
		if !ok || id <= 0 || claims.Subject() == service.RefreshSubject {
			onError(c, customErrors.NewInvalidToken("Invalid token"))
			c.Abort()
			return
		}

		c.Set(currentUserKey, model.CurrentUser{ID: id})
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).Authenticated() {
			Abort(c, customErrors.NewUnauthorized("Authentication required"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the identity attached by Authentication, or an
// anonymous one.
func CurrentUser(c *gin.Context) model.CurrentUser {
	if v, ok := c.Get(currentUserKey); ok {
		if cu, ok := v.(model.CurrentUser); ok {
			return cu
		}
	}
	return model.CurrentUser{}
}
