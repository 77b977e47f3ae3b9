package controllers

import (
	"net/http"
	"time"

	"envmon/middlewares"
	"envmon/models"
	"envmon/services"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type reportMalfunctionRequest struct {
	SensorID    uint              `json:"sensor_id" binding:"required"`
	Description string            `json:"description" binding:"required"`
	Severity    models.Severity   `json:"severity" binding:"required"`
	Diagnostics datatypes.JSONMap `json:"diagnostics"`
	ReportedAt  *time.Time        `json:"reported_at"`
}

type MalfunctionHandler struct {
	malfunctions *services.MalfunctionService
}

func NewMalfunctionHandler(malfunctions *services.MalfunctionService) *MalfunctionHandler {
	return &MalfunctionHandler{malfunctions: malfunctions}
}

func (h *MalfunctionHandler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/malfunctions")
	g.GET("", h.List)
	g.POST("", h.Report)
	g.PUT("/:id/resolve", middlewares.RequireRole(models.RoleAdministrator, models.RoleOperationsManager), h.Resolve)
}

// List supports ?sensor_id= and ?status=active|resolved.
func (h *MalfunctionHandler) List(c *gin.Context) {
	sensorID, ok := queryUint(c, "sensor_id")
	if !ok {
		return
	}
	status := models.MalfunctionStatus(c.Query("status"))
	if status != "" && status != models.MalfunctionActive && status != models.MalfunctionResolved {
		badRequest(c, "Invalid status")
		return
	}

	out, err := h.malfunctions.List(c.Request.Context(), services.MalfunctionFilter{SensorID: sensorID, Status: status})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *MalfunctionHandler) Report(c *gin.Context) {
	var req reportMalfunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid malfunction report")
		return
	}

	m := &models.Malfunction{
		SensorID:    req.SensorID,
		Description: req.Description,
		Severity:    req.Severity,
		Diagnostics: req.Diagnostics,
		ReportedBy:  middlewares.CurrentUsername(c),
	}
	if req.ReportedAt != nil {
		m.ReportedAt = *req.ReportedAt
	}
	if err := h.malfunctions.Report(c.Request.Context(), m); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MalfunctionHandler) Resolve(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid resolution")
			return
		}
	}

	m, err := h.malfunctions.Resolve(c.Request.Context(), id, middlewares.CurrentUsername(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
