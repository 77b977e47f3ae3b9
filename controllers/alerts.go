package controllers

import (
	"net/http"

	"envmon/middlewares"
	"envmon/services"

	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	alerts *services.AlertService
}

func NewAlertHandler(alerts *services.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

func (h *AlertHandler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/alerts", h.List)
	protected.PUT("/alerts/:id/acknowledge", h.Acknowledge)
}

// List supports ?sensor_id=, ?unacknowledged=true and ?limit= (default 100).
func (h *AlertHandler) List(c *gin.Context) {
	sensorID, ok := queryUint(c, "sensor_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}

	alerts, err := h.alerts.List(c.Request.Context(), services.AlertFilter{
		SensorID:           sensorID,
		UnacknowledgedOnly: c.Query("unacknowledged") == "true",
		Limit:              limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) Acknowledge(c *gin.Context) {
	alert, err := h.alerts.Acknowledge(c.Request.Context(), c.Param("id"), middlewares.CurrentUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
