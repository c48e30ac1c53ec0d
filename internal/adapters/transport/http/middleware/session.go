package middleware

import (
	"bytes"
	"net/http"

	customErrors "github.com/Miraines/MoonyAndStarry/account-service/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionKey = "db_session"

// bufferedWriter holds the response until the transaction outcome is known.
type bufferedWriter struct {
	gin.ResponseWriter
	status  int
	written bool
	body    bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(code int) {
	if code > 0 && !w.written {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() {
	w.written = true
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.body.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.written = true
	return w.body.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	return w.status
}

func (w *bufferedWriter) Size() int {
	if !w.written {
		return -1
	}
	return w.body.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.written
}

func (w *bufferedWriter) flush() {
	w.ResponseWriter.WriteHeader(w.status)
	w.ResponseWriter.WriteHeaderNow()
	if w.body.Len() > 0 {
		_, _ = w.ResponseWriter.Write(w.body.Bytes())
	}
}

// DBSession runs every request in its own transaction. It commits when the
// handler succeeds and rolls back on errors, 4xx/5xx responses and panics.
// The response is held back until commit, so a failed commit is reported
// as 503 rather than a success the database never saw.
func DBSession(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := db.WithContext(c.Request.Context()).Begin()
		if tx.Error != nil {
			Abort(c, customErrors.WrapStorage(tx.Error, "begin transaction"))
			return
		}

		orig := c.Writer
		buf := &bufferedWriter{ResponseWriter: orig, status: http.StatusOK}
		c.Writer = buf
		c.Set(sessionKey, tx)

		done := false
		defer func() {
			c.Writer = orig
			if !done {
				// panic unwinding; recovery further out renders the 500
				tx.Rollback()
			}
		}()

		c.Next()

		if len(c.Errors) > 0 || buf.status >= http.StatusBadRequest {
			if err := tx.Rollback().Error; err != nil {
				log.Warn("rollback failed", zap.Error(err))
			}
			done = true
			buf.flush()
			return
		}

		if err := tx.Commit().Error; err != nil {
			done = true
			log.Error("commit failed", zap.String("request_id", GetRequestID(c)), zap.Error(err))
			c.Writer = orig
			Abort(c, customErrors.WrapStorage(err, "commit transaction"))
			return
		}
		done = true
		buf.flush()
	}
}

// Session returns the request's transaction. It panics when DBSession is not
// installed on the route.
func Session(c *gin.Context) *gorm.DB {
	return c.MustGet(sessionKey).(*gorm.DB)
}
