package controllers

import (
	"net/http"

	"envmon/models"
	"envmon/services"

	"github.com/gin-gonic/gin"
)

type ReadingHandler struct {
	readings *services.ReadingService
}

func NewReadingHandler(readings *services.ReadingService) *ReadingHandler {
	return &ReadingHandler{readings: readings}
}

func (h *ReadingHandler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.POST("/readings/:type", h.Ingest)
}

// Ingest stores one reading of the type in the path and returns its data
// points plus any alerts it raised.
func (h *ReadingHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		result *services.IngestResult
		err    error
	)
	switch models.DataType(c.Param("type")) {
	case models.DataTypeAir:
		var r models.AirQuality
		if err := c.ShouldBindJSON(&r); err != nil {
			badRequest(c, "Invalid air quality reading")
			return
		}
		r.ID = 0
		result, err = h.readings.IngestAir(ctx, &r)
	case models.DataTypeWater:
		var r models.WaterQuality
		if err := c.ShouldBindJSON(&r); err != nil {
			badRequest(c, "Invalid water quality reading")
			return
		}
		r.ID = 0
		result, err = h.readings.IngestWater(ctx, &r)
	case models.DataTypeWeather:
		var r models.WeatherCondition
		if err := c.ShouldBindJSON(&r); err != nil {
			badRequest(c, "Invalid weather reading")
			return
		}
		r.ID = 0
		result, err = h.readings.IngestWeather(ctx, &r)
	default:
		badRequest(c, "Unknown reading type")
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
