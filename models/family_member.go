package models

import (
	"time"
)

// FamilyMember represents a relative linked to one patient
type FamilyMember struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PatientID    uint      `gorm:"index;not null" json:"patient_id"` // 关联的患者ID
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Phone        string    `gorm:"type:varchar(20);index" json:"phone"`
	Relationship string    `gorm:"type:varchar(50)" json:"relationship"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}
