package controllers

import (
	"net/http"
	"time"

	"envmon/middlewares"
	"envmon/models"
	"envmon/services"

	"github.com/gin-gonic/gin"
)

// DeviceHandler runs field operations on a sensor: status changes,
// calibration, firmware updates and retirement.
type DeviceHandler struct {
	sensors *services.SensorService
}

func NewDeviceHandler(sensors *services.SensorService) *DeviceHandler {
	return &DeviceHandler{sensors: sensors}
}

func (h *DeviceHandler) RegisterRoutes(protected *gin.RouterGroup) {
	managed := protected.Group("/sensors", middlewares.RequireRole(models.RoleAdministrator, models.RoleOperationsManager))
	managed.PUT("/:id/status", h.UpdateStatus)
	managed.PUT("/:id/calibration", h.RecordCalibration)
	managed.POST("/:id/firmware", h.UpgradeFirmware)
	managed.PUT("/:id/deactivate", h.Deactivate)
}

// PUT /api/sensors/:id/status
func (h *DeviceHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.SensorStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid status")
		return
	}

	sensor, err := h.sensors.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensor)
}

// PUT /api/sensors/:id/calibration, body optional: {"performed_at": "..."}
func (h *DeviceHandler) RecordCalibration(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		PerformedAt *time.Time `json:"performed_at"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid calibration data")
			return
		}
	}

	var at time.Time
	if req.PerformedAt != nil {
		if req.PerformedAt.After(time.Now()) {
			badRequest(c, "performed_at is in the future")
			return
		}
		at = *req.PerformedAt
	}
	sensor, err := h.sensors.RecordCalibration(c.Request.Context(), id, middlewares.CurrentUsername(c), at)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensor)
}

// POST /api/sensors/:id/firmware blocks until the simulated update finishes.
func (h *DeviceHandler) UpgradeFirmware(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sensor, err := h.sensors.UpgradeFirmware(c.Request.Context(), id, middlewares.CurrentUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Firmware updated to " + sensor.FirmwareVersion,
		"sensor":  sensor,
	})
}

// PUT /api/sensors/:id/deactivate
func (h *DeviceHandler) Deactivate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sensor, err := h.sensors.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensor)
}
