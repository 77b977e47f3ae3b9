package controllers

import (
	"net/http"
	"testing"
	"time"

	"envmon/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dashboardResponse struct {
	Role                models.Role                                `json:"role"`
	OpenAlerts          int64                                      `json:"open_alerts"`
	UsersByRole         map[string]int64                           `json:"users_by_role"`
	SensorsByStatus     map[string]int64                           `json:"sensors_by_status"`
	ActiveMalfunctions  *int64                                     `json:"active_malfunctions"`
	UpcomingMaintenance []models.MaintenanceSchedule               `json:"upcoming_maintenance"`
	LatestReadings      map[string][]models.EnvironmentalDataPoint `json:"latest_readings"`
	Trends              []map[string]any                           `json:"trends"`
}

func TestDashboardPerRole(t *testing.T) {
	app := newTestApp(t)
	app.createSensor(t, "AQ-01", models.DataTypeAir, "pm2_5")
	postAir(t, app, time.Now().UTC().Add(-time.Hour), 40)

	w := app.do(t, models.RoleAdministrator, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	admin := decode[dashboardResponse](t, w)
	assert.Equal(t, models.RoleAdministrator, admin.Role)
	assert.Equal(t, int64(1), admin.OpenAlerts)
	assert.Equal(t, int64(1), admin.UsersByRole[string(models.RoleOperationsManager)])
	assert.Equal(t, int64(1), admin.SensorsByStatus[string(models.SensorOperational)])
	require.NotNil(t, admin.ActiveMalfunctions)
	assert.Zero(t, *admin.ActiveMalfunctions)
	assert.Nil(t, admin.LatestReadings)

	w = app.do(t, models.RoleOperationsManager, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ops := decode[dashboardResponse](t, w)
	assert.Nil(t, ops.UsersByRole)
	assert.NotNil(t, ops.SensorsByStatus)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sci := decode[dashboardResponse](t, w)
	assert.Nil(t, sci.SensorsByStatus)
	require.Contains(t, sci.LatestReadings, string(models.DataTypeAir))
	assert.Len(t, sci.LatestReadings[string(models.DataTypeAir)], 4)
	assert.NotEmpty(t, sci.Trends)
}

func TestSettingsEndpoints(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	current := decode[models.GlobalSettings](t, w)
	assert.True(t, current.AlertsEnabled)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodPut, "/api/settings", gin.H{"maintenance_mode": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, models.RoleAdministrator, http.MethodPut, "/api/settings", gin.H{"data_retention_days": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleAdministrator, http.MethodPut, "/api/settings", gin.H{"maintenance_mode": true})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.GlobalSettings](t, w)
	assert.True(t, updated.MaintenanceMode)
	assert.Equal(t, current.DataRetentionDays, updated.DataRetentionDays)

	res := postAir(t, app, time.Now().UTC().Add(-time.Hour), 90)
	assert.Empty(t, res.Alerts)
}
