package services

import (
	"context"
	"fmt"
	"time"

	"envmon/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MaintenanceService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewMaintenanceService(db *gorm.DB, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddLog appends a maintenance entry for an existing sensor.
func (s *MaintenanceService) AddLog(ctx context.Context, entry *models.MaintenanceLog) error {
	if entry.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	if err := sensorExists(ctx, s.db, entry.SensorID); err != nil {
		return err
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = s.now()
	}
	return appendLog(ctx, s.db, entry)
}

// ListLogs returns a sensor's history, newest first.
func (s *MaintenanceService) ListLogs(ctx context.Context, sensorID uint) ([]models.MaintenanceLog, error) {
	var logs []models.MaintenanceLog
	err := s.db.WithContext(ctx).
		Where("sensor_id = ?", sensorID).
		Order("performed_at DESC, id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list maintenance logs for sensor %d: %w", sensorID, err)
	}
	return logs, nil
}

func (s *MaintenanceService) Schedule(ctx context.Context, schedule *models.MaintenanceSchedule) error {
	if schedule.Task == "" {
		return fmt.Errorf("%w: task is required", ErrInvalidInput)
	}
	if schedule.ScheduledFor.IsZero() {
		return fmt.Errorf("%w: scheduled_for is required", ErrInvalidInput)
	}
	if err := sensorExists(ctx, s.db, schedule.SensorID); err != nil {
		return err
	}
	schedule.ScheduledFor = schedule.ScheduledFor.UTC()
	schedule.Completed = false
	schedule.CompletedAt = nil

	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("create maintenance schedule: %w", err)
	}
	return nil
}

// Upcoming lists open schedules due before now+window, overdue ones included.
func (s *MaintenanceService) Upcoming(ctx context.Context, window time.Duration) ([]models.MaintenanceSchedule, error) {
	var schedules []models.MaintenanceSchedule
	err := s.db.WithContext(ctx).
		Where("completed = ? AND scheduled_for <= ?", false, s.now().Add(window)).
		Order("scheduled_for").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("list upcoming maintenance: %w", err)
	}
	return schedules, nil
}

// Complete closes a schedule and records it in the sensor's log.
func (s *MaintenanceService) Complete(ctx context.Context, id uint, performedBy, notes string) (*models.MaintenanceSchedule, error) {
	var schedule models.MaintenanceSchedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&schedule, id).Error; err != nil {
			return fmt.Errorf("get maintenance schedule %d: %w", id, notFound(err))
		}
		if schedule.Completed {
			return fmt.Errorf("%w: maintenance schedule %d already completed", ErrInvalidInput, id)
		}

		now := s.now()
		schedule.Completed = true
		schedule.CompletedAt = &now
		if err := tx.Save(&schedule).Error; err != nil {
			return fmt.Errorf("complete maintenance schedule %d: %w", id, err)
		}

		if notes == "" {
			notes = schedule.Task
		}
		return appendLog(ctx, tx, &models.MaintenanceLog{
			SensorID:    schedule.SensorID,
			PerformedBy: performedBy,
			Action:      "scheduled_maintenance",
			Notes:       notes,
			PerformedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func appendLog(ctx context.Context, db *gorm.DB, entry *models.MaintenanceLog) error {
	entry.PerformedAt = entry.PerformedAt.UTC()
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append maintenance log: %w", err)
	}
	return nil
}

func sensorExists(ctx context.Context, db *gorm.DB, id uint) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Sensor{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("look up sensor %d: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("sensor %d: %w", id, ErrNotFound)
	}
	return nil
}
