package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"envmon/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase connects to Postgres when a URL is configured and to the
// local SQLite file otherwise. SQLite is held to a single connection so
// statements run one after another.
func OpenDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	if cfg.URL != "" {
		db, err := gorm.Open(postgres.Open(cfg.URL), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Migrate creates or updates every table. Safe to run on each start.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Sensor{},
		&models.SensorSettings{},
		&models.GlobalSettings{},
		&models.Malfunction{},
		&models.MaintenanceLog{},
		&models.MaintenanceSchedule{},
		&models.SensorAlert{},
		&models.AirQuality{},
		&models.WaterQuality{},
		&models.WeatherCondition{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
