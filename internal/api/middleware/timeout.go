package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_mirror/internal/logger"
)

// RequestTimeout sets a per-request context deadline.
// It does NOT forcibly kill the handler; downstream code must honor ctx.Done().
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		// If the context timed out and nothing was written, return 504.
		// (If something was already written, we can't change the response safely.)
		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			logger.WithComponent("http").Warnf("request timed out after %v: %s %s", d, c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error": "request timeout",
			})
			return
		}
	}
}
