package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_mirror/internal/fscache"
	"github.com/bassista/go_mirror/internal/logger"
)

// CacheController exposes maintenance operations on the durable cache.
type CacheController struct {
	cache *fscache.Cache
}

// NewCacheController creates a new CacheController.
func NewCacheController(cache *fscache.Cache) *CacheController {
	return &CacheController{cache: cache}
}

// ClearCache removes every cache entry whose function name contains the
// given component substring (case-insensitive) and reports how many entries
// were removed.
func (cc *CacheController) ClearCache(c *gin.Context) {
	component := c.Param("component")

	removed, err := cc.cache.Clear(component)
	if err != nil {
		logger.WithComponent("cache_controller").Errorf("failed to clear cache for %q: %v", component, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
