package models

import "time"

type SensorAlert struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	SensorID       *uint      `json:"sensor_id" gorm:"index"`
	DataType       DataType   `json:"data_type"`
	Metric         string     `json:"metric" gorm:"index"`
	Value          float64    `json:"value"`
	Threshold      float64    `json:"threshold"`
	Severity       Severity   `json:"severity"`
	Message        string     `json:"message"`
	Acknowledged   bool       `json:"acknowledged" gorm:"index"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index"`
}

func (SensorAlert) TableName() string { return "sensor_alerts" }
