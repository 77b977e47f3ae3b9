package models

import "time"

type AirQuality struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SensorID   *uint     `json:"sensor_id" gorm:"index"`
	SensorName string    `json:"sensor_name"`
	Location   string    `json:"location" gorm:"index"`
	Timestamp  time.Time `json:"timestamp" gorm:"index;not null"`
	NO2        float64   `json:"no2" gorm:"column:no2"`
	SO2        float64   `json:"so2" gorm:"column:so2"`
	PM25       float64   `json:"pm2_5" gorm:"column:pm2_5"`
	PM10       float64   `json:"pm10" gorm:"column:pm10"`
}

func (AirQuality) TableName() string { return "air_quality" }

type WaterQuality struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	SensorID        *uint     `json:"sensor_id" gorm:"index"`
	SensorName      string    `json:"sensor_name"`
	Location        string    `json:"location" gorm:"index"`
	Timestamp       time.Time `json:"timestamp" gorm:"index;not null"`
	PH              float64   `json:"ph" gorm:"column:ph"`
	DissolvedOxygen float64   `json:"dissolved_oxygen" gorm:"column:dissolved_oxygen"`
	Nitrate         float64   `json:"nitrate" gorm:"column:nitrate"`
	Phosphate       float64   `json:"phosphate" gorm:"column:phosphate"`
	Temperature     float64   `json:"temperature" gorm:"column:temperature"`
}

func (WaterQuality) TableName() string { return "water_quality" }

type WeatherCondition struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SensorID    *uint     `json:"sensor_id" gorm:"index"`
	SensorName  string    `json:"sensor_name"`
	Location    string    `json:"location" gorm:"index"`
	Timestamp   time.Time `json:"timestamp" gorm:"index;not null"`
	Temperature float64   `json:"temperature" gorm:"column:temperature"`
	Humidity    float64   `json:"humidity" gorm:"column:humidity"`
	WindSpeed   float64   `json:"wind_speed" gorm:"column:wind_speed"`
	Rainfall    float64   `json:"rainfall" gorm:"column:rainfall"`
}

func (WeatherCondition) TableName() string { return "weather_conditions" }

// EnvironmentalDataPoint is one metric of one stored reading. Status is
// derived from the threshold catalogue and never persisted.
type EnvironmentalDataPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Location   string    `json:"location"`
	DataType   DataType  `json:"data_type"`
	Metric     string    `json:"metric"`
	SensorName string    `json:"sensor_name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Status     string    `json:"status"`
}
