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

func TestMaintenanceService_AddAndListLogs(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	sensor := createSensor(t, ts.sensors, "AQ-01", models.DataTypeAir, "pm2_5")

	older := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	require.NoError(t, ts.maintenance.AddLog(ctx, &models.MaintenanceLog{SensorID: sensor.ID, Action: "cleaning", PerformedAt: older}))
	require.NoError(t, ts.maintenance.AddLog(ctx, &models.MaintenanceLog{SensorID: sensor.ID, Action: "inspection", PerformedAt: newer}))

	logs, err := ts.maintenance.ListLogs(ctx, sensor.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "inspection", logs[0].Action)
	assert.Equal(t, "cleaning", logs[1].Action)

	err = ts.maintenance.AddLog(ctx, &models.MaintenanceLog{SensorID: sensor.ID})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	err = ts.maintenance.AddLog(ctx, &models.MaintenanceLog{SensorID: 999, Action: "cleaning"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMaintenanceService_ScheduleAndComplete(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	sensor := createSensor(t, ts.sensors, "WQ-01", models.DataTypeWater, "ph")

	soon := &models.MaintenanceSchedule{SensorID: sensor.ID, Task: "Replace membrane", ScheduledFor: time.Now().Add(48 * time.Hour)}
	later := &models.MaintenanceSchedule{SensorID: sensor.ID, Task: "Annual service", ScheduledFor: time.Now().Add(60 * 24 * time.Hour)}
	require.NoError(t, ts.maintenance.Schedule(ctx, soon))
	require.NoError(t, ts.maintenance.Schedule(ctx, later))

	upcoming, err := ts.maintenance.Upcoming(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Replace membrane", upcoming[0].Task)

	done, err := ts.maintenance.Complete(ctx, soon.ID, "ops", "")
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)

	upcoming, err = ts.maintenance.Upcoming(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	logs, err := ts.maintenance.ListLogs(ctx, sensor.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "scheduled_maintenance", logs[0].Action)
	assert.Equal(t, "Replace membrane", logs[0].Notes)

	_, err = ts.maintenance.Complete(ctx, soon.ID, "ops", "")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = ts.maintenance.Complete(ctx, 999, "ops", "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMaintenanceService_ScheduleValidation(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	sensor := createSensor(t, ts.sensors, "WQ-01", models.DataTypeWater, "ph")

	err := ts.maintenance.Schedule(ctx, &models.MaintenanceSchedule{SensorID: sensor.ID, ScheduledFor: time.Now()})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	err = ts.maintenance.Schedule(ctx, &models.MaintenanceSchedule{SensorID: sensor.ID, Task: "x"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	err = ts.maintenance.Schedule(ctx, &models.MaintenanceSchedule{SensorID: 42, Task: "x", ScheduledFor: time.Now()})
	assert.True(t, errors.Is(err, ErrNotFound))
}
