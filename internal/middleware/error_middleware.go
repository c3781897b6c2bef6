package middleware

import (
	"net/http"

	"pollbox/internal/transport/httpdto"
	"pollbox/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler logs errors handlers attached with c.Error. Handlers own the
// response body; a generic 500 is written only when nothing was written.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		if l != nil {
			for _, e := range c.Errors {
				if e.IsType(gin.ErrorTypeBind) {
					l.WarnCtx(c.Request.Context(), "request rejected", zap.Error(e.Err))
					continue
				}
				l.ErrorCtx(c.Request.Context(), "request error", zap.Error(e.Err))
			}
		}
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse("Internal server error"))
		}
	}
}

// Recovery turns a panic into a logged 500.
func Recovery(l *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if l != nil {
			l.ErrorCtx(c.Request.Context(), "panic recovered", zap.Any("panic", recovered))
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpdto.NewMessageResponse("Internal server error"))
	})
}
