package middleware

import (
	"errors"
	"net/http"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
)

// Abort renders err as the uniform error body and stops the chain.
func Abort(c *gin.Context, err error) {
	status, body := customErrors.Render(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// AbortAuth renders authentication failures. Errors that carry no status
// become 401 with their own message.
func AbortAuth(c *gin.Context, err error) {
	var appErr *customErrors.Error
	if errors.As(err, &appErr) {
		Abort(c, err)
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusUnauthorized, customErrors.Body{Message: err.Error()})
}

func bodyWithCode(code, msg string) customErrors.Body {
	return customErrors.Body{ErrorCode: &code, Message: msg}
}
