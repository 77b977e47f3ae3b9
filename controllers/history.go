package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"envmon/analysis"
	"envmon/export"
	"envmon/models"
	"envmon/services"
	"envmon/utils"

	"github.com/gin-gonic/gin"
)

// HistoryHandler serves stored readings, their trend analysis and exports.
type HistoryHandler struct {
	env        *services.EnvironmentalService
	thresholds *utils.Thresholds
}

func NewHistoryHandler(env *services.EnvironmentalService, thresholds *utils.Thresholds) *HistoryHandler {
	return &HistoryHandler{env: env, thresholds: thresholds}
}

func (h *HistoryHandler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/history")
	g.GET("", h.History)
	g.GET("/trend", h.Trend)
	g.GET("/export", h.Export)
	g.GET("/locations", h.Locations)
	g.GET("/metrics", h.Metrics)
}

// historyQuery reads ?type=&metric=&location=&from=&to=&limit=.
func historyQuery(c *gin.Context) (services.HistoryQuery, bool) {
	q := services.HistoryQuery{
		DataType: models.DataType(c.Query("type")),
		Metric:   c.Query("metric"),
		Location: c.Query("location"),
	}
	if q.DataType == "" || q.Metric == "" {
		badRequest(c, "type and metric are required")
		return q, false
	}

	var ok bool
	if q.From, ok = queryTime(c, "from"); !ok {
		return q, false
	}
	if q.To, ok = queryTime(c, "to"); !ok {
		return q, false
	}
	if q.Limit, ok = queryInt(c, "limit", 0); !ok {
		return q, false
	}
	return q, true
}

func (h *HistoryHandler) History(c *gin.Context) {
	q, ok := historyQuery(c)
	if !ok {
		return
	}
	points, err := h.env.History(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// Trend analyses the selected series. ?threshold= overrides the metric's
// upper safe bound.
func (h *HistoryHandler) Trend(c *gin.Context) {
	q, ok := historyQuery(c)
	if !ok {
		return
	}

	var threshold *float64
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "Invalid threshold")
			return
		}
		threshold = &v
	} else if m, found := h.thresholds.Lookup(q.DataType, q.Metric); found {
		threshold = m.Bounds.Max
	}

	points, err := h.env.History(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data_type": q.DataType,
		"metric":    q.Metric,
		"location":  q.Location,
		"report":    analysis.Analyze(services.Samples(points), threshold),
	})
}

// Export streams the selected series as ?format=csv (default) or xlsx.
func (h *HistoryHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", export.FormatCSV)
	contentType := export.ContentType(format)
	if contentType == "" {
		badRequest(c, "format must be csv or xlsx")
		return
	}
	q, ok := historyQuery(c)
	if !ok {
		return
	}

	points, err := h.env.History(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if format == export.FormatXLSX {
		err = export.WriteXLSX(&buf, points)
	} else {
		err = export.WriteCSV(&buf, points)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	filename := export.Filename(q.DataType, q.Metric, format, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Locations lists locations with readings of ?type=.
func (h *HistoryHandler) Locations(c *gin.Context) {
	locations, err := h.env.Locations(c.Request.Context(), models.DataType(c.Query("type")))
	if err != nil {
		respondError(c, err)
		return
	}
	if locations == nil {
		locations = []string{}
	}
	c.JSON(http.StatusOK, locations)
}

// Metrics lists the metric catalogue of ?type=.
func (h *HistoryHandler) Metrics(c *gin.Context) {
	dataType := models.DataType(c.Query("type"))
	if !dataType.Valid() {
		badRequest(c, "Invalid type")
		return
	}
	c.JSON(http.StatusOK, h.thresholds.Metrics(dataType))
}
