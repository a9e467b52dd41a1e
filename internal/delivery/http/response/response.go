package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response standardizes the API JSON response
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     interface{} `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// ConflictResponse is the 409 body for a status transition that lost the race.
type ConflictResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Error         string `json:"error"`
	CurrentStatus string `json:"currentStatus"`
	RequestID     string `json:"request_id,omitempty"`
}

func requestID(c *gin.Context) string {
	reqID, _ := c.Get("RequestID")
	idStr, _ := reqID.(string)
	return idStr
}

// Success sends a success response
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: requestID(c),
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string, err interface{}) {
	c.JSON(code, Response{
		Success:   false,
		Message:   message,
		Error:     err,
		RequestID: requestID(c),
	})
}

// Conflict sends a 409 carrying the status the store holds.
func Conflict(c *gin.Context, message, currentStatus string) {
	c.JSON(http.StatusConflict, ConflictResponse{
		Success:       false,
		Message:       message,
		Error:         message,
		CurrentStatus: currentStatus,
		RequestID:     requestID(c),
	})
}
