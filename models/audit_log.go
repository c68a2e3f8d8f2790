package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrAuditLogImmutable 审计日志为只追加记录，禁止更新和删除
var ErrAuditLogImmutable = errors.New("audit logs are append-only and cannot be modified")

// AuditLog represents an append-only record of an action taken against a patient.
// Once written an entry is never updated or deleted; the gorm hooks below make
// any such attempt fail deterministically.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Action      string    `gorm:"type:varchar(50);index;not null" json:"action"` // 如 vital_anomaly
	Entity      string    `gorm:"type:varchar(50)" json:"entity"`
	EntityID    *uint     `json:"entity_id,omitempty"`
	PatientID   uint      `gorm:"index" json:"patient_id"`
	PerformedBy *uint     `json:"performed_by,omitempty"` // 执行人，系统动作为空
	Details     string    `gorm:"type:json" json:"details"` // 结构化详情 (JSON)
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeUpdate 拒绝任何更新
func (l *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}

// BeforeDelete 拒绝任何删除
func (l *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}
