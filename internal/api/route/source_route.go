package route

import (
	"github.com/gin-gonic/gin"

	"github.com/bassista/go_mirror/internal/api/controller"
	"github.com/bassista/go_mirror/internal/api/middleware"
	"github.com/bassista/go_mirror/internal/app"
)

func NewSourceRouter(appCtx *app.App, group *gin.RouterGroup) {
	sc := controller.NewSourceController(appCtx.Repo)
	timeoutMiddleware := middleware.RequestTimeout(appCtx.Config.Server.RequestTimeout)

	group.GET("sources", timeoutMiddleware, sc.ListSources)
	group.GET("sources/:key", timeoutMiddleware, sc.GetSource)
	group.GET("sources/:key/snapshot", timeoutMiddleware, sc.GetSnapshot)
	group.POST("sources/:key/refresh", timeoutMiddleware, sc.RefreshSource)
	group.GET("snapshots", timeoutMiddleware, sc.AllSnapshots)
}
