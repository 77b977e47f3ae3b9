package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"envmon/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingService_IngestRaisesAlerts(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	sensor := createSensor(t, ts.sensors, "AQ-01", models.DataTypeAir, "pm2_5")
	id := sensor.ID

	result, err := ts.readings.IngestAir(ctx, &models.AirQuality{SensorID: &id, NO2: 10, SO2: 5, PM25: 40, PM10: 20})
	require.NoError(t, err)
	require.Len(t, result.Points, 4)
	require.Len(t, result.Alerts, 1)

	alert := result.Alerts[0]
	assert.Equal(t, "pm2_5", alert.Metric)
	assert.Equal(t, 25.0, alert.Threshold)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	require.NotNil(t, alert.SensorID)
	assert.Equal(t, id, *alert.SensorID)
	assert.Contains(t, alert.Message, "Central")

	assert.Equal(t, []string{EventReading, EventAlert}, ts.publisher.events)

	// sensor name and location are filled from the sensor
	points, err := ts.env.History(ctx, HistoryQuery{DataType: models.DataTypeAir, Metric: "pm2_5"})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "AQ-01", points[0].SensorName)
	assert.Equal(t, "Central", points[0].Location)
}

func TestReadingService_SeverityHighForSmallBreach(t *testing.T) {
	ts := newTestServices(t)

	result, err := ts.readings.IngestWeather(context.Background(), &models.WeatherCondition{Location: "Hill", Temperature: 20, Humidity: 50, WindSpeed: 25})
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, "wind_speed", result.Alerts[0].Metric)
	assert.Equal(t, models.SeverityHigh, result.Alerts[0].Severity)
	assert.Nil(t, result.Alerts[0].SensorID)
}

func TestReadingService_LowerBoundBreach(t *testing.T) {
	ts := newTestServices(t)

	result, err := ts.readings.IngestWater(context.Background(), &models.WaterQuality{Location: "River", PH: 5.0, DissolvedOxygen: 8, Temperature: 12})
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, "ph", result.Alerts[0].Metric)
	assert.Equal(t, 6.5, result.Alerts[0].Threshold)
	assert.Contains(t, result.Alerts[0].Message, "lower")
}

func TestReadingService_SensorOverride(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	sensor := createSensor(t, ts.sensors, "WQ-01", models.DataTypeWater, "ph")
	id := sensor.ID

	limit := 9.5
	_, err := ts.settings.UpsertSensorSettings(ctx, models.SensorSettings{SensorID: id, AlertsEnabled: true, MaxThreshold: &limit})
	require.NoError(t, err)

	result, err := ts.readings.IngestWater(ctx, &models.WaterQuality{SensorID: &id, PH: 9.0, DissolvedOxygen: 8, Temperature: 12})
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)

	result, err = ts.readings.IngestWater(ctx, &models.WaterQuality{SensorID: &id, PH: 9.8, DissolvedOxygen: 8, Temperature: 12})
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, 9.5, result.Alerts[0].Threshold)
}

func TestReadingService_AlertsSuppressed(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	sensor := createSensor(t, ts.sensors, "AQ-01", models.DataTypeAir, "pm2_5")
	id := sensor.ID

	_, err := ts.settings.UpsertSensorSettings(ctx, models.SensorSettings{SensorID: id, AlertsEnabled: false})
	require.NoError(t, err)
	result, err := ts.readings.IngestAir(ctx, &models.AirQuality{SensorID: &id, PM25: 99})
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)

	global := ts.settings.Global()
	global.MaintenanceMode = true
	_, err = ts.settings.UpdateGlobal(ctx, global)
	require.NoError(t, err)
	result, err = ts.readings.IngestAir(ctx, &models.AirQuality{Location: "Park", PM25: 99})
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)

	count, err := ts.alerts.CountOpen(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReadingService_Rejections(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	water := createSensor(t, ts.sensors, "WQ-01", models.DataTypeWater, "ph")
	waterID := water.ID

	_, err := ts.readings.IngestAir(ctx, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = ts.readings.IngestWeather(ctx, &models.WeatherCondition{Temperature: 80})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = ts.readings.IngestAir(ctx, &models.AirQuality{Timestamp: time.Now().Add(time.Hour)})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = ts.readings.IngestAir(ctx, &models.AirQuality{SensorID: &waterID})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	missing := uint(404)
	_, err = ts.readings.IngestAir(ctx, &models.AirQuality{SensorID: &missing})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = ts.sensors.Deactivate(ctx, waterID)
	require.NoError(t, err)
	_, err = ts.readings.IngestWater(ctx, &models.WaterQuality{SensorID: &waterID, PH: 7, Temperature: 10})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	assert.Empty(t, ts.publisher.events)
}
