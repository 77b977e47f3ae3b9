package controllers

import (
	"net/http"

	"envmon/middlewares"
	"envmon/services"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/dashboard", h.Get)
}

// Get builds the dashboard for the caller's role.
func (h *DashboardHandler) Get(c *gin.Context) {
	d, err := h.dashboard.Build(c.Request.Context(), middlewares.CurrentRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
