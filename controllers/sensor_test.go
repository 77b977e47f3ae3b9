package controllers

import (
	"net/http"
	"testing"

	"envmon/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorRegistry(t *testing.T) {
	app := newTestApp(t)
	air := app.createSensor(t, "AQ-01", models.DataTypeAir, "pm2_5")
	app.createSensor(t, "WQ-01", models.DataTypeWater, "ph")

	assert.Equal(t, "1.0.0", air.FirmwareVersion)
	assert.Equal(t, models.SensorOperational, air.Status)

	w := app.do(t, models.RoleEnvironmentalScientist, http.MethodPost, "/api/sensors", gin.H{"name": "X", "type": "air"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, models.RoleAdministrator, http.MethodPost, "/api/sensors", gin.H{"name": "AQ-01", "type": "air"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleAdministrator, http.MethodPost, "/api/sensors", gin.H{"name": "Bad", "type": "soil"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/sensors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Sensor](t, w), 2)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/sensors?type=water", nil)
	require.Equal(t, http.StatusOK, w.Code)
	water := decode[[]models.Sensor](t, w)
	require.Len(t, water, 1)
	assert.Equal(t, "WQ-01", water[0].Name)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/sensors?type=lava", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/sensors/"+itoa(air.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AQ-01", decode[models.Sensor](t, w).Name)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/sensors/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, "/api/sensors/"+itoa(air.ID)+"/map", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://maps.google.com/maps?q=51.5,-0.12", decode[map[string]any](t, w)["map_link"])
}

func TestDeviceOperations(t *testing.T) {
	app := newTestApp(t)
	sensor := app.createSensor(t, "WX-01", models.DataTypeWeather, "temperature")
	base := "/api/sensors/" + itoa(sensor.ID)

	w := app.do(t, models.RoleEnvironmentalScientist, http.MethodPost, base+"/firmware", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, models.RoleOperationsManager, http.MethodPost, base+"/firmware", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Message string        `json:"message"`
		Sensor  models.Sensor `json:"sensor"`
	}](t, w)
	assert.Equal(t, "2.0.0", resp.Sensor.FirmwareVersion)
	assert.Equal(t, models.SensorOperational, resp.Sensor.Status)

	w = app.do(t, models.RoleOperationsManager, http.MethodPut, base+"/status", gin.H{"status": "maintenance"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SensorMaintenance, decode[models.Sensor](t, w).Status)

	w = app.do(t, models.RoleOperationsManager, http.MethodPut, base+"/status", gin.H{"status": "melted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleOperationsManager, http.MethodPut, base+"/calibration", nil)
	require.Equal(t, http.StatusOK, w.Code)
	calibrated := decode[models.Sensor](t, w)
	require.NotNil(t, calibrated.LastCalibration)
	require.NotNil(t, calibrated.NextCalibration)

	w = app.do(t, models.RoleOperationsManager, http.MethodPut, base+"/calibration", gin.H{"performed_at": "2999-01-01T00:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleOperationsManager, http.MethodGet, base+"/maintenance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[[]models.MaintenanceLog](t, w)
	require.Len(t, logs, 2)
	assert.Equal(t, "ops", logs[0].PerformedBy)

	w = app.do(t, models.RoleAdministrator, http.MethodPut, base+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	retired := decode[models.Sensor](t, w)
	assert.False(t, retired.IsActive)
	assert.Equal(t, models.SensorOffline, retired.Status)

	w = app.do(t, models.RoleAdministrator, http.MethodPost, base+"/firmware", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleAdministrator, http.MethodPost, "/api/sensors/999/firmware", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSensorSettingsEndpoints(t *testing.T) {
	app := newTestApp(t)
	sensor := app.createSensor(t, "WQ-01", models.DataTypeWater, "ph")
	path := "/api/sensors/" + itoa(sensor.ID) + "/settings"

	w := app.do(t, models.RoleOperationsManager, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.SensorSettings](t, w).AlertsEnabled)

	w = app.do(t, models.RoleOperationsManager, http.MethodPut, path, gin.H{"alerts_enabled": false, "max_threshold": 9.0})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, models.RoleOperationsManager, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.SensorSettings](t, w)
	assert.False(t, got.AlertsEnabled)
	require.NotNil(t, got.MaxThreshold)
	assert.Equal(t, 9.0, *got.MaxThreshold)

	w = app.do(t, models.RoleOperationsManager, http.MethodPut, path, gin.H{"min_threshold": 9.0, "max_threshold": 6.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, models.RoleOperationsManager, http.MethodGet, "/api/sensors/404/settings", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, models.RoleEnvironmentalScientist, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
