package middleware

import (
	"errors"
	"net/http"

	"recruitment-backend/internal/delivery/http/response"
	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/apperror"
	"recruitment-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			// Never expose internal error details to clients
			logger.Log.Error("unhandled error", "error", err, "path", c.FullPath(), "request_id", c.GetString(RequestIDKey))
			response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
			return
		}

		var conflict *domain.StatusConflictError
		if errors.As(appErr, &conflict) {
			response.Conflict(c, appErr.Message, string(conflict.Current))
			return
		}

		if appErr.Code >= http.StatusInternalServerError {
			logger.Log.Error("request failed", "error", appErr.Err, "message", appErr.Message, "path", c.FullPath(), "request_id", c.GetString(RequestIDKey))
		}
		response.Error(c, appErr.Code, appErr.Message, appErr.Details)
	}
}
