package controllers

import (
	"net/http"

	"envmon/middlewares"
	"envmon/models"
	"envmon/services"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/settings", h.Get)
	protected.PUT("/settings", middlewares.RequireRole(models.RoleAdministrator), h.Put)
}

func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Global())
}

// Put applies a partial update; omitted fields keep their current value.
func (h *SettingsHandler) Put(c *gin.Context) {
	var req struct {
		AlertsEnabled                  *bool `json:"alerts_enabled"`
		DataRetentionDays              *int  `json:"data_retention_days"`
		DefaultSamplingIntervalSeconds *int  `json:"default_sampling_interval_seconds"`
		MaintenanceMode                *bool `json:"maintenance_mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid settings")
		return
	}

	settings := h.settings.Global()
	if req.AlertsEnabled != nil {
		settings.AlertsEnabled = *req.AlertsEnabled
	}
	if req.DataRetentionDays != nil {
		settings.DataRetentionDays = *req.DataRetentionDays
	}
	if req.DefaultSamplingIntervalSeconds != nil {
		settings.DefaultSamplingIntervalSeconds = *req.DefaultSamplingIntervalSeconds
	}
	if req.MaintenanceMode != nil {
		settings.MaintenanceMode = *req.MaintenanceMode
	}

	updated, err := h.settings.UpdateGlobal(c.Request.Context(), settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
