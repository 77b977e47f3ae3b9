package services

import (
	"context"
	"fmt"
	"time"

	"envmon/models"
	"envmon/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SensorFilter narrows List. Zero values match everything.
type SensorFilter struct {
	Type       models.DataType
	Status     models.SensorStatus
	ActiveOnly bool
}

// SensorService is the data access layer for sensors.
type SensorService struct {
	db                  *gorm.DB
	logger              *zap.Logger
	calibrationInterval time.Duration
	firmwareDelay       time.Duration
	now                 func() time.Time
}

func NewSensorService(db *gorm.DB, logger *zap.Logger, calibrationInterval, firmwareDelay time.Duration) *SensorService {
	return &SensorService{
		db:                  db,
		logger:              logger,
		calibrationInterval: calibrationInterval,
		firmwareDelay:       firmwareDelay,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

func (s *SensorService) List(ctx context.Context, filter SensorFilter) ([]models.Sensor, error) {
	query := s.db.WithContext(ctx).Order("id")
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var sensors []models.Sensor
	if err := query.Find(&sensors).Error; err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}
	return sensors, nil
}

func (s *SensorService) Get(ctx context.Context, id uint) (*models.Sensor, error) {
	var sensor models.Sensor
	if err := s.db.WithContext(ctx).First(&sensor, id).Error; err != nil {
		return nil, fmt.Errorf("get sensor %d: %w", id, notFound(err))
	}
	return &sensor, nil
}

// Create validates and stores a new sensor. Missing firmware defaults to
// 1.0.0 and the first calibration is due one interval after installation.
func (s *SensorService) Create(ctx context.Context, sensor *models.Sensor) error {
	if sensor.Name == "" {
		return fmt.Errorf("%w: sensor name is required", ErrInvalidInput)
	}
	if !sensor.Type.Valid() {
		return fmt.Errorf("%w: unknown sensor type %q", ErrInvalidInput, sensor.Type)
	}
	if !utils.ValidCoordinates(sensor.Latitude, sensor.Longitude) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	if sensor.FirmwareVersion == "" {
		sensor.FirmwareVersion = "1.0.0"
	}
	if _, err := utils.ParseFirmwareVersion(sensor.FirmwareVersion); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if sensor.Status == "" {
		sensor.Status = models.SensorOperational
	}
	if !sensor.Status.Valid() {
		return fmt.Errorf("%w: unknown sensor status %q", ErrInvalidInput, sensor.Status)
	}
	if sensor.InstallationDate.IsZero() {
		sensor.InstallationDate = s.now()
	}
	if sensor.NextCalibration == nil {
		from := sensor.InstallationDate
		if sensor.LastCalibration != nil {
			from = *sensor.LastCalibration
		}
		next := from.Add(s.calibrationInterval)
		sensor.NextCalibration = &next
	}
	sensor.IsActive = true

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Sensor{}).Where("name = ?", sensor.Name).Count(&count).Error; err != nil {
		return fmt.Errorf("look up sensor %q: %w", sensor.Name, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: sensor %q already exists", ErrInvalidInput, sensor.Name)
	}

	if err := s.db.WithContext(ctx).Create(sensor).Error; err != nil {
		return fmt.Errorf("create sensor: %w", err)
	}
	s.logger.Info("Sensor created",
		zap.Uint("sensor_id", sensor.ID),
		zap.String("name", sensor.Name),
		zap.String("type", string(sensor.Type)),
	)
	return nil
}

func (s *SensorService) UpdateStatus(ctx context.Context, id uint, status models.SensorStatus) (*models.Sensor, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown sensor status %q", ErrInvalidInput, status)
	}
	if err := s.update(ctx, s.db, id, map[string]any{"status": status}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// RecordCalibration stamps a calibration, schedules the next one and logs it.
func (s *SensorService) RecordCalibration(ctx context.Context, id uint, performedBy string, at time.Time) (*models.Sensor, error) {
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()
	next := at.Add(s.calibrationInterval)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.update(ctx, tx, id, map[string]any{
			"last_calibration": at,
			"next_calibration": next,
		}); err != nil {
			return err
		}
		return appendLog(ctx, tx, &models.MaintenanceLog{
			SensorID:    id,
			PerformedBy: performedBy,
			Action:      "calibration",
			Notes:       fmt.Sprintf("Calibrated; next calibration due %s", next.Format("2006-01-02")),
			PerformedAt: at,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UpgradeFirmware simulates an over-the-air update: the sensor goes into
// maintenance, waits out the update delay, then comes back operational on
// the next major version.
func (s *SensorService) UpgradeFirmware(ctx context.Context, id uint, performedBy string) (*models.Sensor, error) {
	sensor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sensor.IsActive {
		return nil, fmt.Errorf("%w: sensor %d is deactivated", ErrInvalidInput, id)
	}

	// the status flip claims the sensor; a concurrent upgrade finds it taken
	previousStatus := sensor.Status
	claim := s.db.WithContext(ctx).Model(&models.Sensor{}).
		Where("id = ? AND is_active = ? AND status <> ?", id, true, models.SensorMaintenance).
		Update("status", models.SensorMaintenance)
	if claim.Error != nil {
		return nil, fmt.Errorf("update sensor %d: %w", id, claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: sensor %d is under maintenance", ErrInvalidInput, id)
	}

	restore := func() {
		// fresh context; the request one may be gone
		if err := s.update(context.Background(), s.db, id, map[string]any{"status": previousStatus}); err != nil {
			s.logger.Error("Failed to restore sensor status", zap.Uint("sensor_id", id), zap.Error(err))
		}
	}

	if sensor, err = s.Get(ctx, id); err != nil {
		restore()
		return nil, err
	}
	newVersion, err := utils.IncrementMajorVersion(sensor.FirmwareVersion)
	if err != nil {
		restore()
		return nil, err
	}

	s.logger.Info("Firmware update started",
		zap.Uint("sensor_id", id),
		zap.String("from", sensor.FirmwareVersion),
		zap.String("to", newVersion),
	)

	timer := time.NewTimer(s.firmwareDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		restore()
		return nil, fmt.Errorf("firmware update of sensor %d: %w", id, ctx.Err())
	case <-timer.C:
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.update(ctx, tx, id, map[string]any{
			"firmware_version": newVersion,
			"status":           models.SensorOperational,
		}); err != nil {
			return err
		}
		return appendLog(ctx, tx, &models.MaintenanceLog{
			SensorID:    id,
			PerformedBy: performedBy,
			Action:      "firmware_update",
			Notes:       fmt.Sprintf("Firmware updated from %s to %s", sensor.FirmwareVersion, newVersion),
			PerformedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Deactivate retires a sensor without deleting its history.
func (s *SensorService) Deactivate(ctx context.Context, id uint) (*models.Sensor, error) {
	if err := s.update(ctx, s.db, id, map[string]any{
		"is_active": false,
		"status":    models.SensorOffline,
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// DueForCalibration returns active sensors whose next calibration is before now.
func (s *SensorService) DueForCalibration(ctx context.Context, now time.Time) ([]models.Sensor, error) {
	var sensors []models.Sensor
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND next_calibration IS NOT NULL AND next_calibration < ?", true, now.UTC()).
		Order("next_calibration").
		Find(&sensors).Error
	if err != nil {
		return nil, fmt.Errorf("list sensors due for calibration: %w", err)
	}
	return sensors, nil
}

// CountByStatus counts active sensors per status.
func (s *SensorService) CountByStatus(ctx context.Context) (map[models.SensorStatus]int64, error) {
	var rows []struct {
		Status models.SensorStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Sensor{}).
		Select("status, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count sensors by status: %w", err)
	}

	counts := map[models.SensorStatus]int64{
		models.SensorOperational: 0,
		models.SensorMaintenance: 0,
		models.SensorOffline:     0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *SensorService) update(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error {
	result := db.WithContext(ctx).Model(&models.Sensor{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update sensor %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update sensor %d: %w", id, ErrNotFound)
	}
	return nil
}
