package route

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bassista/go_mirror/internal/app"
)

// SetupRoutes registers every HTTP route on the provided engine. The metrics
// gatherer may be nil, in which case /metrics is not exposed.
func SetupRoutes(r *gin.Engine, appCtx *app.App, metrics prometheus.Gatherer) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))
	}

	apiRouter := r.Group("/api")

	NewSourceRouter(appCtx, apiRouter)
	NewCacheRouter(appCtx, apiRouter)
	NewConfigurationRouter(appCtx, apiRouter)
}
