package controllers

import (
	"net/http"
	"time"

	"envmon/middlewares"
	"envmon/models"
	"envmon/services"

	"github.com/gin-gonic/gin"
)

type MaintenanceHandler struct {
	maintenance *services.MaintenanceService
}

func NewMaintenanceHandler(maintenance *services.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance}
}

func (h *MaintenanceHandler) RegisterRoutes(protected *gin.RouterGroup) {
	managers := middlewares.RequireRole(models.RoleAdministrator, models.RoleOperationsManager)

	protected.GET("/sensors/:id/maintenance", h.ListLogs)
	protected.POST("/sensors/:id/maintenance", managers, h.AddLog)

	schedules := protected.Group("/maintenance/schedules")
	schedules.GET("", h.Upcoming)
	schedules.POST("", managers, h.Schedule)
	schedules.PUT("/:id/complete", managers, h.Complete)
}

func (h *MaintenanceHandler) ListLogs(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	logs, err := h.maintenance.ListLogs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *MaintenanceHandler) AddLog(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Action      string     `json:"action" binding:"required"`
		Notes       string     `json:"notes"`
		PerformedAt *time.Time `json:"performed_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid maintenance entry")
		return
	}

	entry := &models.MaintenanceLog{
		SensorID:    id,
		PerformedBy: middlewares.CurrentUsername(c),
		Action:      req.Action,
		Notes:       req.Notes,
	}
	if req.PerformedAt != nil {
		entry.PerformedAt = *req.PerformedAt
	}
	if err := h.maintenance.AddLog(c.Request.Context(), entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Upcoming lists open schedules due within ?days= (default 30), overdue included.
func (h *MaintenanceHandler) Upcoming(c *gin.Context) {
	days, ok := queryInt(c, "days", 30)
	if !ok {
		return
	}
	schedules, err := h.maintenance.Upcoming(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

func (h *MaintenanceHandler) Schedule(c *gin.Context) {
	var req struct {
		SensorID     uint      `json:"sensor_id" binding:"required"`
		Task         string    `json:"task" binding:"required"`
		AssignedTo   string    `json:"assigned_to"`
		ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid schedule")
		return
	}

	schedule := &models.MaintenanceSchedule{
		SensorID:     req.SensorID,
		Task:         req.Task,
		AssignedTo:   req.AssignedTo,
		ScheduledFor: req.ScheduledFor,
	}
	if err := h.maintenance.Schedule(c.Request.Context(), schedule); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

func (h *MaintenanceHandler) Complete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid completion")
			return
		}
	}

	schedule, err := h.maintenance.Complete(c.Request.Context(), id, middlewares.CurrentUsername(c), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}
