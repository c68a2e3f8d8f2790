package services

import (
	"errors"
	"fmt"
	"time"

	"auracare-backend/models"

	"gorm.io/gorm"
)

// InterfaceAlertService defines the alert service interface
type InterfaceAlertService interface {
	GetAlerts(query *models.PaginationQuery, status models.AlertStatus, patientID uint) ([]models.Alert, models.PaginationResult, error)
	GetActiveAlerts(patientID uint) ([]models.Alert, error)
	GetAlertByID(id uint) (*models.Alert, error)
	CreateVitalAlert(patient *models.Patient, vitalType string, value float64, threshold Threshold, severity models.AlertSeverity) (*models.Alert, error)
	CreatePatientRequestAlert(patientID uint, message string) (*models.Alert, error)
	AcknowledgeAlert(id uint, staffID uint) (*models.Alert, error)
	ResolveAlert(id uint, staffID uint) (*models.Alert, error)
}

// AlertService 提供告警相关的服务
type AlertService struct {
	DB *gorm.DB
}

// NewAlertService 创建一个新的告警服务
func NewAlertService(db *gorm.DB) InterfaceAlertService {
	return &AlertService{DB: db}
}

// 1 GetAlerts 分页获取告警列表，可按状态和病人过滤
func (s *AlertService) GetAlerts(query *models.PaginationQuery, status models.AlertStatus, patientID uint) ([]models.Alert, models.PaginationResult, error) {
	if query.PageNum <= 0 {
		query.PageNum = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	db := s.DB.Model(&models.Alert{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if patientID > 0 {
		db = db.Where("patient_id = ?", patientID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	order := "created_at DESC"
	if !query.Desc {
		order = "created_at ASC"
	}

	var alerts []models.Alert
	if err := db.Preload("Patient").
		Order(order).
		Offset((query.PageNum - 1) * query.PageSize).
		Limit(query.PageSize).
		Find(&alerts).Error; err != nil {
		return nil, models.PaginationResult{}, err
	}

	return alerts, models.NewPaginationResult(int(total), query.PageNum, query.PageSize), nil
}

// 2 GetActiveAlerts 获取未处理的告警，patientID 为 0 时返回全部
func (s *AlertService) GetActiveAlerts(patientID uint) ([]models.Alert, error) {
	db := s.DB.Where("status = ?", models.AlertStatusActive)
	if patientID > 0 {
		db = db.Where("patient_id = ?", patientID)
	}

	var alerts []models.Alert
	if err := db.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// 3 GetAlertByID 根据ID获取告警
func (s *AlertService) GetAlertByID(id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := s.DB.Preload("Patient").First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("告警不存在")
		}
		return nil, err
	}
	return &alert, nil
}

// 4 CreateVitalAlert 根据体征越限创建告警
func (s *AlertService) CreateVitalAlert(patient *models.Patient, vitalType string, value float64, threshold Threshold, severity models.AlertSeverity) (*models.Alert, error) {
	priority := "medium"
	if severity == models.AlertSeverityCritical {
		priority = "high"
	}

	alert := &models.Alert{
		PatientID:    patient.ID,
		Severity:     severity,
		Category:     models.AlertCategoryVitalSigns,
		Message:      fmt.Sprintf("%s 异常: %.1f (正常范围 %.1f-%.1f)", vitalType, value, threshold.Min, threshold.Max),
		Status:       models.AlertStatusActive,
		Priority:     priority,
		VitalType:    vitalType,
		VitalValue:   value,
		ThresholdMin: threshold.Min,
		ThresholdMax: threshold.Max,
	}

	if err := s.DB.Create(alert).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	alert.Patient = patient
	return alert, nil
}

// 5 CreatePatientRequestAlert 创建病人呼叫类告警
func (s *AlertService) CreatePatientRequestAlert(patientID uint, message string) (*models.Alert, error) {
	if message == "" {
		message = "病人发起呼叫"
	}

	alert := &models.Alert{
		PatientID: patientID,
		Severity:  models.AlertSeverityWarning,
		Category:  models.AlertCategoryRequest,
		Message:   message,
		Status:    models.AlertStatusActive,
		Priority:  "medium",
	}

	if err := s.DB.Create(alert).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return alert, nil
}

// 6 AcknowledgeAlert 确认告警
func (s *AlertService) AcknowledgeAlert(id uint, staffID uint) (*models.Alert, error) {
	alert, err := s.GetAlertByID(id)
	if err != nil {
		return nil, err
	}
	if alert.Status == models.AlertStatusResolved {
		return nil, errors.New("告警已处理完毕，无法再确认")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":          models.AlertStatusAcknowledged,
		"acknowledged_by": staffID,
		"acknowledged_at": now,
	}
	if err := s.DB.Model(alert).Updates(updates).Error; err != nil {
		return nil, err
	}

	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedBy = &staffID
	alert.AcknowledgedAt = &now
	return alert, nil
}

// 7 ResolveAlert 处理完成告警
func (s *AlertService) ResolveAlert(id uint, staffID uint) (*models.Alert, error) {
	alert, err := s.GetAlertByID(id)
	if err != nil {
		return nil, err
	}
	if alert.Status == models.AlertStatusResolved {
		return alert, nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      models.AlertStatusResolved,
		"resolved_at": now,
	}
	// 直接处理完成时补记确认人
	if alert.AcknowledgedBy == nil {
		updates["acknowledged_by"] = staffID
		updates["acknowledged_at"] = now
	}
	if err := s.DB.Model(alert).Updates(updates).Error; err != nil {
		return nil, err
	}

	alert.Status = models.AlertStatusResolved
	alert.ResolvedAt = &now
	if alert.AcknowledgedBy == nil {
		alert.AcknowledgedBy = &staffID
		alert.AcknowledgedAt = &now
	}
	return alert, nil
}
