package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"envmon/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultGlobalSettings is written on first start.
var DefaultGlobalSettings = models.GlobalSettings{
	ID:                             models.GlobalSettingsID,
	AlertsEnabled:                  true,
	DataRetentionDays:              0,
	DefaultSamplingIntervalSeconds: 300,
	MaintenanceMode:                false,
}

// SettingsService keeps the global settings row cached in memory and
// synchronized with the database.
type SettingsService struct {
	db     *gorm.DB
	logger *zap.Logger

	mu     sync.RWMutex
	global models.GlobalSettings
}

func NewSettingsService(db *gorm.DB, logger *zap.Logger) *SettingsService {
	return &SettingsService{db: db, logger: logger, global: DefaultGlobalSettings}
}

// Init loads the global settings, creating the default row if missing.
// Call once on startup.
func (s *SettingsService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var settings models.GlobalSettings
	err := s.db.WithContext(ctx).First(&settings, models.GlobalSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = DefaultGlobalSettings
		if err := s.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return fmt.Errorf("create default global settings: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load global settings: %w", err)
	}

	s.global = settings
	return nil
}

// Global returns the cached global settings.
func (s *SettingsService) Global() models.GlobalSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// UpdateGlobal persists new global settings and refreshes the cache.
func (s *SettingsService) UpdateGlobal(ctx context.Context, settings models.GlobalSettings) (models.GlobalSettings, error) {
	if settings.DataRetentionDays < 0 || settings.DefaultSamplingIntervalSeconds < 0 {
		return models.GlobalSettings{}, fmt.Errorf("%w: settings must not be negative", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings.ID = models.GlobalSettingsID
	if err := s.db.WithContext(ctx).Save(&settings).Error; err != nil {
		return models.GlobalSettings{}, fmt.Errorf("save global settings: %w", err)
	}
	s.global = settings
	s.logger.Info("Global settings updated",
		zap.Bool("alerts_enabled", settings.AlertsEnabled),
		zap.Int("data_retention_days", settings.DataRetentionDays),
		zap.Bool("maintenance_mode", settings.MaintenanceMode),
	)
	return settings, nil
}

// SensorSettings returns a sensor's overrides, or defaults derived from the
// global settings when none are stored.
func (s *SettingsService) SensorSettings(ctx context.Context, sensorID uint) (models.SensorSettings, error) {
	var settings models.SensorSettings
	err := s.db.WithContext(ctx).Where("sensor_id = ?", sensorID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		global := s.Global()
		return models.SensorSettings{
			SensorID:                sensorID,
			AlertsEnabled:           true,
			SamplingIntervalSeconds: global.DefaultSamplingIntervalSeconds,
		}, nil
	}
	if err != nil {
		return models.SensorSettings{}, fmt.Errorf("load settings for sensor %d: %w", sensorID, err)
	}
	return settings, nil
}

// UpsertSensorSettings stores a sensor's overrides.
func (s *SettingsService) UpsertSensorSettings(ctx context.Context, settings models.SensorSettings) (models.SensorSettings, error) {
	if settings.MinThreshold != nil && settings.MaxThreshold != nil && *settings.MinThreshold > *settings.MaxThreshold {
		return models.SensorSettings{}, fmt.Errorf("%w: min_threshold above max_threshold", ErrInvalidInput)
	}
	if settings.SamplingIntervalSeconds < 0 {
		return models.SensorSettings{}, fmt.Errorf("%w: sampling interval must not be negative", ErrInvalidInput)
	}
	if err := sensorExists(ctx, s.db, settings.SensorID); err != nil {
		return models.SensorSettings{}, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SensorSettings
		err := tx.Where("sensor_id = ?", settings.SensorID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			settings.ID = 0
		case err != nil:
			return err
		default:
			settings.ID = existing.ID
		}
		return tx.Save(&settings).Error
	})
	if err != nil {
		return models.SensorSettings{}, fmt.Errorf("save settings for sensor %d: %w", settings.SensorID, err)
	}
	return settings, nil
}
