package response

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/internhub/portal/pkg/errors"
)

// Success sends a successful JSON response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// Error sends an error JSON response
func Error(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.JSON(status, body)
}

// Abort sends an error JSON response and stops the handler chain
func Abort(c *gin.Context, err error) {
	status, body := errorBody(err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(err error) (int, gin.H) {
	if appErr, ok := apperrors.As(err); ok {
		body := gin.H{
			"success": false,
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		}
		if appErr.Redirect != "" {
			body["redirect"] = appErr.Redirect
		}
		return appErr.Status, body
	}

	// Default internal server error
	return 500, gin.H{
		"success": false,
		"error": gin.H{
			"code":    apperrors.ErrCodeInternalError,
			"message": "Internal server error",
		},
	}
}

// ValidationError sends a validation error response
func ValidationError(c *gin.Context, message string) {
	c.JSON(400, gin.H{
		"success": false,
		"error": gin.H{
			"code":    apperrors.ErrCodeValidationFailed,
			"message": message,
		},
	})
}
