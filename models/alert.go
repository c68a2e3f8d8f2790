package models

import (
	"time"
)

// AlertSeverity represents how serious an alert is
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertStatus represents the acknowledgement state of an alert
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// AlertCategory groups alerts by origin
type AlertCategory string

const (
	AlertCategoryVitalSigns AlertCategory = "vital_signs"
	AlertCategoryRequest    AlertCategory = "patient_request"
)

// Alert represents a persisted, actionable anomaly record.
// Alerts are created by the vitals poller (or other routes) and only ever
// transition status via acknowledge/resolve; they are never deleted.
type Alert struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PatientID uint          `gorm:"index;not null" json:"patient_id"`
	Severity  AlertSeverity `gorm:"type:varchar(20);not null" json:"severity"` // warning / critical
	Category  AlertCategory `gorm:"type:varchar(30);index" json:"category"`
	Message   string        `gorm:"type:varchar(255)" json:"message"`
	Status    AlertStatus   `gorm:"type:varchar(20);default:'active';index" json:"status"`
	Priority  string        `gorm:"type:varchar(20)" json:"priority"` // high / medium

	// 结构化异常数据
	VitalType    string  `gorm:"type:varchar(30)" json:"vital_type"`
	VitalValue   float64 `json:"vital_value"`
	ThresholdMin float64 `json:"threshold_min"`
	ThresholdMax float64 `json:"threshold_max"`

	// Acknowledgement / resolution sub-state
	AcknowledgedBy *uint      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}
