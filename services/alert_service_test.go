package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"envmon/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertService_RaiseListAcknowledge(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	sensor := createSensor(t, ts.sensors, "AQ-01", models.DataTypeAir, "pm2_5")
	id := sensor.ID

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &models.SensorAlert{SensorID: &id, DataType: models.DataTypeAir, Metric: "pm2_5", Value: 40, Threshold: 25, Severity: models.SeverityCritical, CreatedAt: base}
	second := &models.SensorAlert{DataType: models.DataTypeWeather, Metric: "rainfall", Value: 60, Threshold: 50, Severity: models.SeverityHigh, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, ts.alerts.Raise(ctx, first))
	require.NoError(t, ts.alerts.Raise(ctx, second))

	_, err := uuid.Parse(first.ID)
	assert.NoError(t, err)

	all, err := ts.alerts.List(ctx, AlertFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	forSensor, err := ts.alerts.List(ctx, AlertFilter{SensorID: id})
	require.NoError(t, err)
	require.Len(t, forSensor, 1)

	open, err := ts.alerts.HasOpen(ctx, id, "pm2_5")
	require.NoError(t, err)
	assert.True(t, open)

	acked, err := ts.alerts.Acknowledge(ctx, first.ID, "scientist")
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	require.NotNil(t, acked.AcknowledgedAt)

	again, err := ts.alerts.Acknowledge(ctx, first.ID, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, "scientist", again.AcknowledgedBy)

	open, err = ts.alerts.HasOpen(ctx, id, "pm2_5")
	require.NoError(t, err)
	assert.False(t, open)

	unacked, err := ts.alerts.List(ctx, AlertFilter{UnacknowledgedOnly: true})
	require.NoError(t, err)
	require.Len(t, unacked, 1)
	assert.Equal(t, second.ID, unacked[0].ID)

	count, err := ts.alerts.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	limited, err := ts.alerts.List(ctx, AlertFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = ts.alerts.Acknowledge(ctx, "missing", "x")
	assert.True(t, errors.Is(err, ErrNotFound))
}
