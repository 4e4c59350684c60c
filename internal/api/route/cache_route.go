package route

import (
	"github.com/gin-gonic/gin"

	"github.com/bassista/go_mirror/internal/api/controller"
	"github.com/bassista/go_mirror/internal/api/middleware"
	"github.com/bassista/go_mirror/internal/app"
)

func NewCacheRouter(appCtx *app.App, group *gin.RouterGroup) {
	cc := controller.NewCacheController(appCtx.Cache)
	timeoutMiddleware := middleware.RequestTimeout(appCtx.Config.Server.RequestTimeout)

	group.DELETE("cache/:component", timeoutMiddleware, cc.ClearCache)
}
