package controllers

import (
	"net/http"
	"time"

	"envmon/middlewares"
	"envmon/models"
	"envmon/services"
	"envmon/utils"

	"github.com/gin-gonic/gin"
)

type createSensorRequest struct {
	Name             string              `json:"name" binding:"required"`
	Type             models.DataType     `json:"type" binding:"required"`
	Measurand        string              `json:"measurand"`
	Unit             string              `json:"unit"`
	Latitude         float64             `json:"latitude"`
	Longitude        float64             `json:"longitude"`
	LocationName     string              `json:"location_name"`
	Manufacturer     string              `json:"manufacturer"`
	Model            string              `json:"model"`
	FirmwareVersion  string              `json:"firmware_version"`
	Status           models.SensorStatus `json:"status"`
	InstallationDate *time.Time          `json:"installation_date"`
}

type sensorSettingsRequest struct {
	AlertsEnabled           *bool    `json:"alerts_enabled"`
	MinThreshold            *float64 `json:"min_threshold"`
	MaxThreshold            *float64 `json:"max_threshold"`
	SamplingIntervalSeconds int      `json:"sampling_interval_seconds"`
}

// SensorHandler serves the sensor registry.
type SensorHandler struct {
	sensors  *services.SensorService
	settings *services.SettingsService
}

func NewSensorHandler(sensors *services.SensorService, settings *services.SettingsService) *SensorHandler {
	return &SensorHandler{sensors: sensors, settings: settings}
}

func (h *SensorHandler) RegisterRoutes(protected *gin.RouterGroup) {
	sensors := protected.Group("/sensors")
	sensors.GET("", h.List)
	sensors.GET("/:id", h.Get)
	sensors.GET("/:id/map", h.Map)

	managed := sensors.Group("", middlewares.RequireRole(models.RoleAdministrator, models.RoleOperationsManager))
	managed.POST("", h.Create)
	managed.GET("/:id/settings", h.GetSettings)
	managed.PUT("/:id/settings", h.PutSettings)
}

// List supports ?type=, ?status= and ?active=true.
func (h *SensorHandler) List(c *gin.Context) {
	filter := services.SensorFilter{
		Type:       models.DataType(c.Query("type")),
		Status:     models.SensorStatus(c.Query("status")),
		ActiveOnly: c.Query("active") == "true",
	}
	if filter.Type != "" && !filter.Type.Valid() {
		badRequest(c, "Invalid type")
		return
	}

	sensors, err := h.sensors.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensors)
}

func (h *SensorHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sensor, err := h.sensors.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sensor)
}

// Map returns a map link for the sensor's coordinates.
func (h *SensorHandler) Map(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sensor, err := h.sensors.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sensor_id": sensor.ID,
		"latitude":  sensor.Latitude,
		"longitude": sensor.Longitude,
		"location":  sensor.LocationName,
		"map_link":  utils.MapLink(sensor.Latitude, sensor.Longitude),
	})
}

func (h *SensorHandler) Create(c *gin.Context) {
	var req createSensorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid sensor data")
		return
	}

	sensor := &models.Sensor{
		Name:            req.Name,
		Type:            req.Type,
		Measurand:       req.Measurand,
		Unit:            req.Unit,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		LocationName:    req.LocationName,
		Manufacturer:    req.Manufacturer,
		Model:           req.Model,
		FirmwareVersion: req.FirmwareVersion,
		Status:          req.Status,
	}
	if req.InstallationDate != nil {
		sensor.InstallationDate = req.InstallationDate.UTC()
	}
	if err := h.sensors.Create(c.Request.Context(), sensor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sensor)
}

func (h *SensorHandler) GetSettings(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.sensors.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	settings, err := h.settings.SensorSettings(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PutSettings replaces a sensor's overrides. Omitted alerts_enabled keeps alerts on.
func (h *SensorHandler) PutSettings(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req sensorSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid settings")
		return
	}

	settings := models.SensorSettings{
		SensorID:                id,
		AlertsEnabled:           req.AlertsEnabled == nil || *req.AlertsEnabled,
		MinThreshold:            req.MinThreshold,
		MaxThreshold:            req.MaxThreshold,
		SamplingIntervalSeconds: req.SamplingIntervalSeconds,
	}
	saved, err := h.settings.UpsertSensorSettings(c.Request.Context(), settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
