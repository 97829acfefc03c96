package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/internhub/portal/pkg/errors"
	"github.com/internhub/portal/pkg/response"
)

// Recovery creates a panic recovery middleware
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Log the panic
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("client", ClientID(c)),
				)

				// Return 500 error
				response.Abort(c, apperrors.NewAppError(apperrors.ErrCodeInternalError, "Internal server error", http.StatusInternalServerError))
			}
		}()

		c.Next()
	}
}
