package services

import (
	"errors"

	"auracare-backend/models"
	"auracare-backend/utils"

	"gorm.io/gorm"
)

// InterfaceStaffService defines the staff account service interface
type InterfaceStaffService interface {
	Authenticate(username, password string) (*models.Staff, error)
	GetStaffByID(id uint) (*models.Staff, error)
	GetAllStaff() ([]models.Staff, error)
	CreateStaff(staff *models.Staff, plainPassword string) error
	EnsureDefaultAdmin(password string) error
}

// StaffService 提供医护账号相关的服务
type StaffService struct {
	DB *gorm.DB
}

// NewStaffService 创建一个新的医护账号服务
func NewStaffService(db *gorm.DB) InterfaceStaffService {
	return &StaffService{DB: db}
}

// 1 Authenticate 校验用户名和密码
func (s *StaffService) Authenticate(username, password string) (*models.Staff, error) {
	var staff models.Staff
	if err := s.DB.Where("username = ?", username).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("用户名或密码错误")
		}
		return nil, err
	}

	if !utils.CheckPasswordHash(password, staff.Password) {
		return nil, errors.New("用户名或密码错误")
	}
	return &staff, nil
}

// 2 GetStaffByID 根据ID获取医护账号
func (s *StaffService) GetStaffByID(id uint) (*models.Staff, error) {
	var staff models.Staff
	if err := s.DB.First(&staff, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("账号不存在")
		}
		return nil, err
	}
	return &staff, nil
}

// 3 GetAllStaff 获取所有医护账号
func (s *StaffService) GetAllStaff() ([]models.Staff, error) {
	var staffList []models.Staff
	if err := s.DB.Find(&staffList).Error; err != nil {
		return nil, err
	}
	return staffList, nil
}

// 4 CreateStaff 创建医护账号
func (s *StaffService) CreateStaff(staff *models.Staff, plainPassword string) error {
	var count int64
	if err := s.DB.Model(&models.Staff{}).Where("username = ?", staff.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("用户名已存在")
	}

	hashed, err := utils.HashPassword(plainPassword)
	if err != nil {
		return err
	}
	staff.Password = hashed

	if staff.Role == "" {
		staff.Role = models.StaffRoleNurse
	}
	return s.DB.Create(staff).Error
}

// 5 EnsureDefaultAdmin 系统启动时确保存在默认管理员账号
func (s *StaffService) EnsureDefaultAdmin(password string) error {
	var count int64
	if err := s.DB.Model(&models.Staff{}).Where("username = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return s.CreateStaff(&models.Staff{
		Username: "admin",
		Name:     "系统管理员",
		Role:     models.StaffRoleAdmin,
	}, password)
}
