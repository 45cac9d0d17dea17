package respond

import (
	"github.com/gin-gonic/gin"

	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// ErrorBody is the error object clients receive.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs http.error and aborts with the error envelope.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"request_id": requestID(c),
	}
	if route := c.FullPath(); route != "" {
		fields["route"] = route
	}
	if userID, ok := c.Get("userId"); ok {
		fields["user_id"] = userID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

func requestID(c *gin.Context) string {
	if id := c.GetString("requestId"); id != "" {
		return id
	}
	return telemetry.RequestIDFromContext(c.Request.Context())
}
