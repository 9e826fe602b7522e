package middleware

import (
	"net/http"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler turns the last error pushed with c.Error into the JSON error
// envelope. Stacks are only exposed outside production.
func ErrorHandler(log *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr := apperrors.Normalize(err)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("code", appErr.Code),
			zap.Int("status", appErr.Status()),
			zap.Error(err),
		}
		if appErr.IsOperational() {
			log.Warn("request failed", fields...)
		} else {
			log.Error("request failed", append(fields, zap.String("stack", appErr.Stack()))...)
		}

		body := utils.ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
		if !production {
			body.Stack = appErr.Stack()
		}
		utils.RespondError(c, appErr.Status(), body)
	}
}

// Recovery converts panics into a 500 envelope.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"))
		utils.AbortWithError(c, http.StatusInternalServerError, utils.ErrorBody{
			Code:    apperrors.CodeServer,
			Message: "Internal server error",
		})
	})
}

func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("Route " + c.Request.Method + " " + c.Request.URL.Path + " not found"))
	}
}
