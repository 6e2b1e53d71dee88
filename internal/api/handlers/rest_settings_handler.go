package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/services"
)

// RestSettingsHandler serves the public runtime settings to the SPA.
type RestSettingsHandler struct {
	settingsService services.ISettingsService
}

// NewRestSettingsHandler creates a new RestSettingsHandler.
func NewRestSettingsHandler(settingsService services.ISettingsService) *RestSettingsHandler {
	return &RestSettingsHandler{settingsService: settingsService}
}

// GetPublicSettings handles GET /v1/settings
func (h *RestSettingsHandler) GetPublicSettings(c *gin.Context) {
	settings, err := h.settingsService.GetAllPublic(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}
