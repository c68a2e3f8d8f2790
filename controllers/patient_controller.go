package controllers

import (
	"net/http"

	"auracare-backend/models"
	"auracare-backend/services"
	"auracare-backend/services/container"

	"github.com/gin-gonic/gin"
)

// InterfacePatientController 定义病人控制器接口
type InterfacePatientController interface {
	GetPatients()
	GetPatient()
	CreatePatient()
	UpdatePatient()
	DischargePatient()
	GetFamilyMembers()
}

// PatientController 处理病人相关请求
type PatientController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewPatientController 创建一个新的病人控制器
func NewPatientController(ctx *gin.Context, container *container.ServiceContainer) *PatientController {
	return &PatientController{
		Ctx:       ctx,
		Container: container,
	}
}

// CreatePatientRequest 创建病人请求
type CreatePatientRequest struct {
	Name       string `json:"name" binding:"required" example:"张三"`
	RoomNumber string `json:"room_number" binding:"required" example:"301"`
	Age        int    `json:"age" example:"67"`
	Condition  string `json:"condition" example:"normal"`
}

// HandlePatientFunc 返回一个处理病人请求的Gin处理函数
func HandlePatientFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewPatientController(ctx, container)

		switch method {
		case "getPatients":
			controller.GetPatients()
		case "getPatient":
			controller.GetPatient()
		case "createPatient":
			controller.CreatePatient()
		case "updatePatient":
			controller.UpdatePatient()
		case "dischargePatient":
			controller.DischargePatient()
		case "getFamilyMembers":
			controller.GetFamilyMembers()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// GetPatients 获取病人列表
// @Summary      List patients
// @Tags         Patient
// @Produce      json
// @Param        active query bool false "Only active patients"
// @Success      200 {object} LoginResponse
// @Router       /patients [get]
// @Security     BearerAuth
func (c *PatientController) GetPatients() {
	patientService := c.Container.GetService("patient").(services.InterfacePatientService)

	var (
		patients []models.Patient
		err      error
	)
	if c.Ctx.Query("active") == "true" {
		patients, err = patientService.GetActivePatients()
	} else {
		patients, err = patientService.GetAllPatients()
	}
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    patients,
	})
}

// GetPatient 获取单个病人
// @Summary      Get patient by ID
// @Tags         Patient
// @Produce      json
// @Param        id path int true "Patient ID"
// @Success      200 {object} LoginResponse
// @Failure      404 {object} ErrorResponse
// @Router       /patients/{id} [get]
// @Security     BearerAuth
func (c *PatientController) GetPatient() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}

	patientService := c.Container.GetService("patient").(services.InterfacePatientService)
	patient, err := patientService.GetPatientByID(id)
	if err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    patient,
	})
}

// CreatePatient 创建病人（入院登记）
// @Summary      Admit a new patient
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Param        request body CreatePatientRequest true "Patient info"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} ErrorResponse
// @Router       /patients [post]
// @Security     BearerAuth
func (c *PatientController) CreatePatient() {
	var req CreatePatientRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}

	patient := &models.Patient{
		Name:       req.Name,
		RoomNumber: req.RoomNumber,
		Age:        req.Age,
		Condition:  req.Condition,
	}

	patientService := c.Container.GetService("patient").(services.InterfacePatientService)
	if err := patientService.CreatePatient(patient); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    patient,
	})
}

// UpdatePatient 更新病人信息
// @Summary      Update patient
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Param        id path int true "Patient ID"
// @Param        request body map[string]interface{} true "Fields to update"
// @Success      200 {object} LoginResponse
// @Router       /patients/{id} [put]
// @Security     BearerAuth
func (c *PatientController) UpdatePatient() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := c.Ctx.ShouldBindJSON(&updates); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}
	// 在院状态走专门的出院接口
	delete(updates, "is_active")
	delete(updates, "id")

	patientService := c.Container.GetService("patient").(services.InterfacePatientService)
	patient, err := patientService.UpdatePatient(id, updates)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    patient,
	})
}

// DischargePatient 办理出院，病人退出轮询范围
// @Summary      Discharge patient
// @Tags         Patient
// @Produce      json
// @Param        id path int true "Patient ID"
// @Success      200 {object} LoginResponse
// @Router       /patients/{id}/discharge [post]
// @Security     BearerAuth
func (c *PatientController) DischargePatient() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}

	patientService := c.Container.GetService("patient").(services.InterfacePatientService)
	auditService := c.Container.GetService("audit_log").(services.InterfaceAuditLogService)

	patient, err := patientService.SetPatientActive(id, false)
	if err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	operator := currentUserID(c.Ctx)
	if _, err := auditService.Record("patient_discharged", "patient", &patient.ID, patient.ID, &operator, nil); err != nil {
		// 审计失败不阻断业务
		c.Ctx.Error(err)
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    patient,
	})
}

// GetFamilyMembers 获取病人家属列表
// @Summary      List family members of a patient
// @Tags         Patient
// @Produce      json
// @Param        id path int true "Patient ID"
// @Success      200 {object} LoginResponse
// @Router       /patients/{id}/family [get]
// @Security     BearerAuth
func (c *PatientController) GetFamilyMembers() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}

	patientService := c.Container.GetService("patient").(services.InterfacePatientService)
	members, err := patientService.GetFamilyMembers(id)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    members,
	})
}
