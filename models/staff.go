package models

import (
	"time"
)

// StaffRole represents the role of a staff account
type StaffRole string

const (
	StaffRoleNurse  StaffRole = "staff"
	StaffRoleDoctor StaffRole = "doctor"
	StaffRoleAdmin  StaffRole = "admin"
)

// Staff represents a hospital staff account (nurse, doctor or admin)
type Staff struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"type:varchar(100);not null" json:"-"` // bcrypt哈希，不对外输出
	Name      string    `gorm:"type:varchar(100)" json:"name"`
	Role      StaffRole `gorm:"type:varchar(20);default:'staff'" json:"role"`
	Email     string    `gorm:"type:varchar(100)" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
