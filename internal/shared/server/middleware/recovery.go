package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/BilalEnesS/doc-panel/internal/shared/server/respond"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

const maxStackBytes = 8 << 10

// Recovery turns a handler panic into a 500 envelope and a "panic" log line.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			stack := debug.Stack()
			if len(stack) > maxStackBytes {
				stack = stack[:maxStackBytes]
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(stack),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"route":      c.FullPath(),
			}
			if id := UserIDFromContext(c); id > 0 {
				fields["user_id"] = id
			}
			telemetry.Error("panic", fields)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
