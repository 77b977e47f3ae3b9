package models

import (
	"time"

	"gorm.io/datatypes"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type MalfunctionStatus string

const (
	MalfunctionActive   MalfunctionStatus = "active"
	MalfunctionResolved MalfunctionStatus = "resolved"
)

// Malfunction is a fault reported against a sensor.
type Malfunction struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	SensorID        uint              `json:"sensor_id" gorm:"index;not null"`
	Description     string            `json:"description" gorm:"not null"`
	Severity        Severity          `json:"severity" gorm:"not null"`
	Status          MalfunctionStatus `json:"status" gorm:"index;not null;default:active"`
	Diagnostics     datatypes.JSONMap `json:"diagnostics"`
	ReportedBy      string            `json:"reported_by"`
	ReportedAt      time.Time         `json:"reported_at"`
	ResolvedBy      string            `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
	ResolutionNotes string            `json:"resolution_notes,omitempty"`
}

func (Malfunction) TableName() string { return "malfunctions" }

func (m Malfunction) Resolved() bool { return m.Status == MalfunctionResolved }
