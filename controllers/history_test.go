package controllers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/url"
	"testing"
	"time"

	"envmon/analysis"
	"envmon/models"
	"envmon/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func postAir(t *testing.T, app *testApp, ts time.Time, pm25 float64) services.IngestResult {
	t.Helper()
	w := app.do(t, models.RoleEnvironmentalScientist, http.MethodPost, "/api/readings/air", gin.H{
		"location":  "Park",
		"timestamp": ts.Format(time.RFC3339),
		"no2":       10,
		"so2":       4,
		"pm2_5":     pm25,
		"pm10":      20,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[services.IngestResult](t, w)
}

func TestReadingsIngest(t *testing.T) {
	app := newTestApp(t)
	now := time.Now().UTC().Truncate(time.Second)

	res := postAir(t, app, now.Add(-time.Hour), 10)
	assert.Len(t, res.Points, 4)
	assert.Empty(t, res.Alerts)

	res = postAir(t, app, now.Add(-30*time.Minute), 45)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, "pm2_5", res.Alerts[0].Metric)

	w := app.do(t, models.RoleEnvironmentalScientist, http.MethodPost, "/api/readings/soil", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodPost, "/api/readings/weather", gin.H{"temperature": 99})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodPost, "/api/readings/water", gin.H{
		"timestamp": now.Add(24 * time.Hour).Format(time.RFC3339), "ph": 7,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, "", http.MethodPost, "/api/readings/air", gin.H{"pm2_5": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	app := newTestApp(t)
	now := time.Now().UTC().Truncate(time.Second)
	for i, v := range []float64{10, 20, 30} {
		postAir(t, app, now.Add(time.Duration(i-3)*time.Hour), v)
	}

	w := app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history?type=air&metric=pm2_5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	points := decode[[]models.EnvironmentalDataPoint](t, w)
	require.Len(t, points, 3)
	assert.Equal(t, 10.0, points[0].Value)
	assert.Equal(t, "Critical", points[2].Status)

	q := url.Values{"type": {"air"}, "metric": {"pm2_5"}, "from": {now.Add(-150 * time.Minute).Format(time.RFC3339)}}
	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.EnvironmentalDataPoint](t, w), 2)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history?type=air", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history?type=air&metric=lead", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history?type=air&metric=pm2_5&from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history/trend?type=air&metric=pm2_5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trend := decode[struct {
		Report analysis.Report `json:"report"`
	}](t, w)
	assert.Equal(t, 3, trend.Report.Count)
	assert.Equal(t, analysis.TrendIncreasing, trend.Report.Trend)
	assert.InDelta(t, 10.0, trend.Report.Slope, 1e-6)
	require.NotNil(t, trend.Report.Threshold)
	assert.Equal(t, 25.0, *trend.Report.Threshold)
	assert.Equal(t, 1, trend.Report.ExceedCount)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history/trend?type=air&metric=pm2_5&threshold=15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trend = decode[struct {
		Report analysis.Report `json:"report"`
	}](t, w)
	assert.Equal(t, 2, trend.Report.ExceedCount)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history/locations?type=air", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Park"}, decode[[]string](t, w))

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history/locations?type=water", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history/metrics?type=water", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 5)
}

func TestHistoryExport(t *testing.T) {
	app := newTestApp(t)
	now := time.Now().UTC().Truncate(time.Second)
	postAir(t, app, now.Add(-2*time.Hour), 12)
	postAir(t, app, now.Add(-time.Hour), 14)

	w := app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history/export?type=air&metric=pm2_5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "air_pm2_5_")
	records, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "12", records[1][5])

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history/export?type=air&metric=pm2_5&format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("History")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/history/export?type=air&metric=pm2_5&format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertEndpoints(t *testing.T) {
	app := newTestApp(t)
	now := time.Now().UTC().Truncate(time.Second)
	res := postAir(t, app, now.Add(-time.Hour), 60)
	require.Len(t, res.Alerts, 1)
	alertID := res.Alerts[0].ID

	w := app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/alerts?unacknowledged=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.SensorAlert](t, w), 1)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodPut, "/api/alerts/"+alertID+"/acknowledge", nil)
	require.Equal(t, http.StatusOK, w.Code)
	acked := decode[models.SensorAlert](t, w)
	assert.True(t, acked.Acknowledged)
	assert.Equal(t, "scientist", acked.AcknowledgedBy)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/alerts?unacknowledged=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.SensorAlert](t, w))

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.SensorAlert](t, w), 1)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodPut, "/api/alerts/nope/acknowledge", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/alerts?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
