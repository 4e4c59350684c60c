package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_mirror/internal/datarepo"
	"github.com/bassista/go_mirror/internal/logger"
)

// SourceController exposes the data repository over HTTP.
type SourceController struct {
	repo *datarepo.Repository
}

// NewSourceController creates a new SourceController.
func NewSourceController(repo *datarepo.Repository) *SourceController {
	return &SourceController{repo: repo}
}

// ListSources returns every registered source with its run status.
func (sc *SourceController) ListSources(c *gin.Context) {
	c.JSON(http.StatusOK, sc.repo.Statuses())
}

// GetSource returns the run status of a single source.
func (sc *SourceController) GetSource(c *gin.Context) {
	key := c.Param("key")
	status, ok := sc.repo.Status(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetSnapshot returns the latest payload of a source. A known source without
// a snapshot yet yields 404 with a null body so clients can render a
// placeholder.
func (sc *SourceController) GetSnapshot(c *gin.Context) {
	key := c.Param("key")
	if _, ok := sc.repo.Status(key); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}

	p := sc.repo.Snapshot(key)
	if p == nil {
		c.JSON(http.StatusNotFound, nil)
		return
	}
	c.JSON(http.StatusOK, p)
}

// RefreshSource runs one source's fetch immediately. The response carries the
// fresh payload, or null when the fetch failed and the previous snapshot was
// kept.
func (sc *SourceController) RefreshSource(c *gin.Context) {
	key := c.Param("key")

	p, err := sc.repo.RefreshNow(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, datarepo.ErrNotRegistered) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
			return
		}
		logger.WithComponent("source_controller").Errorf("failed to refresh source %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to refresh source"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// AllSnapshots returns the key to payload map for every source that has one.
func (sc *SourceController) AllSnapshots(c *gin.Context) {
	c.JSON(http.StatusOK, sc.repo.Snapshots())
}
