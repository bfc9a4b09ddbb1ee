package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diagsvc/internal/apperr"
	"diagsvc/internal/models"
)

// Recover turns a handler panic into a 500 failure envelope. The panic value
// is shown to clients only when verbose is set.
func Recover(log *zap.Logger, verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}
			err := apperr.Internal(fmt.Errorf("panic: %v", r))
			log.Error("handler panicked",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
				zap.Any("panic", r),
				zap.StackSkip("stack", 2),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(err.Status, models.Failure(err.PublicMessage(verbose), err.Status))
		}()
		c.Next()
	}
}

// RenderErrors writes the failure envelope for the last error a handler
// attached with c.Error, unless the handler already responded.
func RenderErrors(log *zap.Logger, verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		e := apperr.As(last.Err)
		if e.Kind == apperr.KindInternal {
			log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(e))
		} else {
			log.Debug("request rejected", zap.String("path", c.Request.URL.Path), zap.Error(e))
		}
		c.JSON(e.Status, models.Failure(e.PublicMessage(verbose), e.Status))
	}
}
