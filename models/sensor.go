package models

import "time"

// DataType groups sensors and readings by what they measure.
type DataType string

const (
	DataTypeAir     DataType = "air"
	DataTypeWater   DataType = "water"
	DataTypeWeather DataType = "weather"
)

func (d DataType) Valid() bool {
	return d == DataTypeAir || d == DataTypeWater || d == DataTypeWeather
}

type SensorStatus string

const (
	SensorOperational SensorStatus = "operational"
	SensorMaintenance SensorStatus = "maintenance"
	SensorOffline     SensorStatus = "offline"
)

func (s SensorStatus) Valid() bool {
	return s == SensorOperational || s == SensorMaintenance || s == SensorOffline
}

// Sensor is a monitored device. Rows are deactivated, never deleted.
type Sensor struct {
	ID               uint         `json:"id" gorm:"primaryKey"`
	Name             string       `json:"name" gorm:"uniqueIndex;not null"`
	Type             DataType     `json:"type" gorm:"index;not null"`
	Measurand        string       `json:"measurand"`
	Unit             string       `json:"unit"`
	Latitude         float64      `json:"latitude"`
	Longitude        float64      `json:"longitude"`
	LocationName     string       `json:"location_name"`
	Manufacturer     string       `json:"manufacturer"`
	Model            string       `json:"model"`
	FirmwareVersion  string       `json:"firmware_version" gorm:"not null;default:1.0.0"`
	Status           SensorStatus `json:"status" gorm:"index;not null;default:operational"`
	IsActive         bool         `json:"is_active" gorm:"not null;default:true"`
	InstallationDate time.Time    `json:"installation_date"`
	LastCalibration  *time.Time   `json:"last_calibration"`
	NextCalibration  *time.Time   `json:"next_calibration"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (Sensor) TableName() string { return "sensors" }
