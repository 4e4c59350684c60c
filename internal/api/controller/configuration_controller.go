package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bassista/go_mirror/internal/config"
)

// ConfigurationResponse represents the configuration response structure for the API.
type ConfigurationResponse struct {
	Title              string `json:"title"`
	RefreshIntervalSec int    `json:"refreshIntervalSec"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

// NewConfigurationController creates a new ConfigurationController.
func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration returns the application configuration for the frontend.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	response := ConfigurationResponse{
		Title:              cc.config.Misc.Title,
		RefreshIntervalSec: cc.config.Misc.UIRefreshIntervalSecs,
	}
	c.JSON(http.StatusOK, response)
}
