package services

import (
	"errors"
	"time"

	"auracare-backend/models"

	"gorm.io/gorm"
)

// InterfacePatientService defines the patient service interface
type InterfacePatientService interface {
	GetAllPatients() ([]models.Patient, error)
	GetActivePatients() ([]models.Patient, error)
	GetPatientByID(id uint) (*models.Patient, error)
	CreatePatient(patient *models.Patient) error
	UpdatePatient(id uint, updates map[string]interface{}) (*models.Patient, error)
	SetPatientActive(id uint, active bool) (*models.Patient, error)
	GetFamilyMembers(patientID uint) ([]models.FamilyMember, error)
	IsFamilyOf(familyMemberID uint, patientID uint) (bool, error)
}

// PatientService 提供病人相关的服务
type PatientService struct {
	DB *gorm.DB
}

// NewPatientService 创建一个新的病人服务
func NewPatientService(db *gorm.DB) InterfacePatientService {
	return &PatientService{DB: db}
}

// 1 GetAllPatients 获取所有病人列表
func (s *PatientService) GetAllPatients() ([]models.Patient, error) {
	var patients []models.Patient
	if err := s.DB.Preload("FamilyMembers").Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

// 2 GetActivePatients 获取在院病人列表，巡检轮询只覆盖这部分
func (s *PatientService) GetActivePatients() ([]models.Patient, error) {
	var patients []models.Patient
	if err := s.DB.Where("is_active = ?", true).Find(&patients).Error; err != nil {
		return nil, err
	}
	return patients, nil
}

// 3 GetPatientByID 根据ID获取病人
func (s *PatientService) GetPatientByID(id uint) (*models.Patient, error) {
	var patient models.Patient
	if err := s.DB.Preload("FamilyMembers").First(&patient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("病人不存在")
		}
		return nil, err
	}
	return &patient, nil
}

// 4 CreatePatient 创建新病人
func (s *PatientService) CreatePatient(patient *models.Patient) error {
	if patient.RoomNumber == "" {
		return errors.New("病房号不能为空")
	}

	// 同一病房只能有一个在院病人
	var count int64
	if err := s.DB.Model(&models.Patient{}).
		Where("room_number = ? AND is_active = ?", patient.RoomNumber, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("该病房已有在院病人")
	}

	if patient.AdmittedAt.IsZero() {
		patient.AdmittedAt = time.Now()
	}
	patient.IsActive = true
	return s.DB.Create(patient).Error
}

// 5 UpdatePatient 更新病人信息
func (s *PatientService) UpdatePatient(id uint, updates map[string]interface{}) (*models.Patient, error) {
	patient, err := s.GetPatientByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.DB.Model(patient).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetPatientByID(id)
}

// 6 SetPatientActive 设置在院/离院状态
func (s *PatientService) SetPatientActive(id uint, active bool) (*models.Patient, error) {
	return s.UpdatePatient(id, map[string]interface{}{"is_active": active})
}

// 7 GetFamilyMembers 获取病人的家属列表
func (s *PatientService) GetFamilyMembers(patientID uint) ([]models.FamilyMember, error) {
	var members []models.FamilyMember
	if err := s.DB.Where("patient_id = ?", patientID).Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// 8 IsFamilyOf 判断家属与病人是否关联
func (s *PatientService) IsFamilyOf(familyMemberID uint, patientID uint) (bool, error) {
	var count int64
	if err := s.DB.Model(&models.FamilyMember{}).
		Where("id = ? AND patient_id = ?", familyMemberID, patientID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
