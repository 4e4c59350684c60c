package middleware

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"

	"github.com/bassista/go_mirror/internal/logger"
)

// HoneybadgerMiddleware sends error/warning notifications to Honeybadger.
// On panic, it notifies Honeybadger and re-panics to allow gin.Recovery to handle the response.
func HoneybadgerMiddleware() gin.HandlerFunc {
	log := logger.WithComponent("honeybadger")

	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		log.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	honeybadger.Configure(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    os.Getenv("GO_ENV"),
	})

	log.Info("Honeybadger error reporting is enabled.")

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				// Notify Honeybadger with stacktrace, then re-panic
				honeybadger.Notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path),
					c.Request, honeybadger.Context{"stack": string(debug.Stack())}, honeybadger.Tags{"panic", "http"})
				log.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec) // propagate panic to let gin.Recovery handle it
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status >= 400 && status != 404 {
			if status >= 500 {
				// Send stacktrace for 5xx errors
				honeybadger.Notify(fmt.Sprintf("Error: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path), c.Request, honeybadger.Tags{"5XX", "http"})
			} else {
				// For warnings (4xx), send as notice without stacktrace
				honeybadger.Notify(fmt.Sprintf("Warning: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path), honeybadger.Tags{"4XX", "http"})
			}
			log.Warnf("Honeybadger reported HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
		}
	}
}
