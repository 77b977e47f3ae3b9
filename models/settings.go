package models

import "time"

// GlobalSettingsID is the primary key of the single global settings row.
const GlobalSettingsID = 1

type GlobalSettings struct {
	ID                             uint      `json:"-" gorm:"primaryKey"`
	AlertsEnabled                  bool      `json:"alerts_enabled"`
	DataRetentionDays              int       `json:"data_retention_days"`
	DefaultSamplingIntervalSeconds int       `json:"default_sampling_interval_seconds"`
	MaintenanceMode                bool      `json:"maintenance_mode"`
	UpdatedAt                      time.Time `json:"updated_at"`
}

func (GlobalSettings) TableName() string { return "global_settings" }

// SensorSettings override global behaviour for one sensor. MinThreshold and
// MaxThreshold replace the catalogue bounds for the sensor's measurand.
type SensorSettings struct {
	ID                      uint      `json:"-" gorm:"primaryKey"`
	SensorID                uint      `json:"sensor_id" gorm:"uniqueIndex;not null"`
	AlertsEnabled           bool      `json:"alerts_enabled"`
	MinThreshold            *float64  `json:"min_threshold"`
	MaxThreshold            *float64  `json:"max_threshold"`
	SamplingIntervalSeconds int       `json:"sampling_interval_seconds"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func (SensorSettings) TableName() string { return "sensor_settings" }
