package models

import (
	"time"
)

// Patient represents a monitored ward patient
type Patient struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	RoomNumber string    `gorm:"type:varchar(20);index" json:"room_number"` // 病房号，同时作为生命体征服务的取数键
	Age        int       `json:"age"`
	Condition  string    `gorm:"type:varchar(50)" json:"condition"` // normal / critical / recovering
	IsActive   bool      `gorm:"default:true;index" json:"is_active"`
	AdmittedAt time.Time `json:"admitted_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	FamilyMembers []FamilyMember `gorm:"foreignKey:PatientID" json:"family_members,omitempty"`
}
