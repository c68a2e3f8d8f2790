package services

import (
	"encoding/json"
	"fmt"
	"time"

	"auracare-backend/models"

	"gorm.io/gorm"
)

// InterfaceAuditLogService defines the audit log service interface.
// 审计日志只追加，不提供任何更新或删除操作。
type InterfaceAuditLogService interface {
	Record(action, entity string, entityID *uint, patientID uint, performedBy *uint, details interface{}) (*models.AuditLog, error)
	GetLogs(query *models.PaginationQuery, patientID uint, action string) ([]models.AuditLog, models.PaginationResult, error)
}

// AuditLogService 提供审计日志相关的服务
type AuditLogService struct {
	DB *gorm.DB
}

// NewAuditLogService 创建一个新的审计日志服务
func NewAuditLogService(db *gorm.DB) InterfaceAuditLogService {
	return &AuditLogService{DB: db}
}

// 1 Record 追加一条审计记录，details 会被序列化为 JSON 存储
func (s *AuditLogService) Record(action, entity string, entityID *uint, patientID uint, performedBy *uint, details interface{}) (*models.AuditLog, error) {
	var detailsJSON string
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("序列化审计详情失败: %v", err)
		}
		detailsJSON = string(raw)
	}

	entry := &models.AuditLog{
		Action:      action,
		Entity:      entity,
		EntityID:    entityID,
		PatientID:   patientID,
		PerformedBy: performedBy,
		Details:     detailsJSON,
		Timestamp:   time.Now(),
	}

	if err := s.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return entry, nil
}

// 2 GetLogs 分页查询审计记录，可按病人和动作过滤
func (s *AuditLogService) GetLogs(query *models.PaginationQuery, patientID uint, action string) ([]models.AuditLog, models.PaginationResult, error) {
	if query.PageNum <= 0 {
		query.PageNum = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	db := s.DB.Model(&models.AuditLog{})
	if patientID > 0 {
		db = db.Where("patient_id = ?", patientID)
	}
	if action != "" {
		db = db.Where("action = ?", action)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	var logs []models.AuditLog
	if err := db.Order("timestamp DESC").
		Offset((query.PageNum - 1) * query.PageSize).
		Limit(query.PageSize).
		Find(&logs).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	return logs, models.NewPaginationResult(int(total), query.PageNum, query.PageSize), nil
}
