package services

import (
	"context"
	"fmt"
	"time"

	"envmon/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AlertFilter struct {
	SensorID           uint
	UnacknowledgedOnly bool
	Limit              int
}

type AlertService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewAlertService(db *gorm.DB, logger *zap.Logger) *AlertService {
	return &AlertService{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Raise stores a new unacknowledged alert.
func (s *AlertService) Raise(ctx context.Context, alert *models.SensorAlert) error {
	alert.ID = uuid.NewString()
	alert.Acknowledged = false
	alert.AcknowledgedAt = nil
	alert.AcknowledgedBy = ""
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.now()
	}

	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("raise alert: %w", err)
	}
	fields := []zap.Field{
		zap.String("alert_id", alert.ID),
		zap.String("metric", alert.Metric),
		zap.Float64("value", alert.Value),
		zap.String("severity", string(alert.Severity)),
	}
	if alert.SensorID != nil {
		fields = append(fields, zap.Uint("sensor_id", *alert.SensorID))
	}
	s.logger.Warn("Alert raised", fields...)
	return nil
}

// List returns alerts newest first.
func (s *AlertService) List(ctx context.Context, filter AlertFilter) ([]models.SensorAlert, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.SensorID != 0 {
		query = query.Where("sensor_id = ?", filter.SensorID)
	}
	if filter.UnacknowledgedOnly {
		query = query.Where("acknowledged = ?", false)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var alerts []models.SensorAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// Acknowledge marks an alert as seen. Acknowledging twice keeps the first
// acknowledgement.
func (s *AlertService) Acknowledge(ctx context.Context, id, by string) (*models.SensorAlert, error) {
	var alert models.SensorAlert
	if err := s.db.WithContext(ctx).First(&alert, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get alert %s: %w", id, notFound(err))
	}
	if alert.Acknowledged {
		return &alert, nil
	}

	now := s.now()
	alert.Acknowledged = true
	alert.AcknowledgedBy = by
	alert.AcknowledgedAt = &now
	if err := s.db.WithContext(ctx).Save(&alert).Error; err != nil {
		return nil, fmt.Errorf("acknowledge alert %s: %w", id, err)
	}
	return &alert, nil
}

// HasOpen reports whether a sensor already has an unacknowledged alert for metric.
func (s *AlertService) HasOpen(ctx context.Context, sensorID uint, metric string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SensorAlert{}).
		Where("sensor_id = ? AND metric = ? AND acknowledged = ?", sensorID, metric, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("look up open alerts for sensor %d: %w", sensorID, err)
	}
	return count > 0, nil
}

func (s *AlertService) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SensorAlert{}).
		Where("acknowledged = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count open alerts: %w", err)
	}
	return count, nil
}
