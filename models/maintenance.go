package models

import "time"

// MaintenanceLog entries are append-only.
type MaintenanceLog struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	SensorID    uint      `json:"sensor_id" gorm:"index;not null"`
	PerformedBy string    `json:"performed_by"`
	Action      string    `json:"action" gorm:"not null"`
	Notes       string    `json:"notes"`
	PerformedAt time.Time `json:"performed_at" gorm:"index"`
}

func (MaintenanceLog) TableName() string { return "maintenance_logs" }

type MaintenanceSchedule struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	SensorID     uint       `json:"sensor_id" gorm:"index;not null"`
	Task         string     `json:"task" gorm:"not null"`
	AssignedTo   string     `json:"assigned_to"`
	ScheduledFor time.Time  `json:"scheduled_for" gorm:"index"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (MaintenanceSchedule) TableName() string { return "maintenance_schedules" }
