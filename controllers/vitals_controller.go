package controllers

import (
	"net/http"

	"auracare-backend/realtime"
	"auracare-backend/services"
	"auracare-backend/services/container"

	"github.com/gin-gonic/gin"
)

// InterfaceVitalsController 定义生命体征控制器接口
type InterfaceVitalsController interface {
	GetVitals()
	UpdateVitals()
	GetPollerStats()
}

// VitalsController 处理生命体征相关请求
type VitalsController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewVitalsController 创建一个新的生命体征控制器
func NewVitalsController(ctx *gin.Context, container *container.ServiceContainer) *VitalsController {
	return &VitalsController{
		Ctx:       ctx,
		Container: container,
	}
}

// UpdateVitalsRequest 手动覆写体征请求，字段都是可选
type UpdateVitalsRequest struct {
	HeartRate        *float64                `json:"heart_rate,omitempty"`
	BloodPressure    *services.BloodPressure `json:"blood_pressure,omitempty"`
	OxygenSaturation *float64                `json:"oxygen_saturation,omitempty"`
	Temperature      *float64                `json:"temperature,omitempty"`
	RespiratoryRate  *float64                `json:"respiratory_rate,omitempty"`
}

// HandleVitalsFunc 返回一个处理生命体征请求的Gin处理函数
func HandleVitalsFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewVitalsController(ctx, container)

		switch method {
		case "getVitals":
			controller.GetVitals()
		case "updateVitals":
			controller.UpdateVitals()
		case "getPollerStats":
			controller.GetPollerStats()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// GetVitals 获取病人最新体征，优先读缓存
// @Summary      Get latest vitals for a patient
// @Tags         Vitals
// @Produce      json
// @Param        id path int true "Patient ID"
// @Success      200 {object} LoginResponse
// @Failure      404 {object} ErrorResponse
// @Router       /patients/{id}/vitals [get]
// @Security     BearerAuth
func (c *VitalsController) GetVitals() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}

	patientService := c.Container.GetService("patient").(services.InterfacePatientService)
	redisService := c.Container.GetService("redis").(services.InterfaceRedisService)
	vitalsService := c.Container.GetService("vitals").(services.InterfaceVitalsService)

	patient, err := patientService.GetPatientByID(id)
	if err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	// 缓存命中直接返回，避免穿透到外部服务
	if cached, err := redisService.GetCachedVitals(patient.ID); err == nil && cached != nil {
		c.Ctx.JSON(http.StatusOK, gin.H{
			"code":    0,
			"message": "success",
			"data":    cached,
		})
		return
	}

	snap, err := vitalsService.GetVitals(c.Ctx.Request.Context(), patient.RoomNumber)
	if err != nil {
		c.Ctx.JSON(http.StatusBadGateway, gin.H{
			"code":    502,
			"message": "体征数据暂不可用",
			"data":    nil,
		})
		return
	}

	if err := redisService.CacheVitals(patient.ID, snap); err != nil {
		c.Ctx.Error(err)
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    snap,
	})
}

// UpdateVitals 手动覆写病人体征并立即广播，演示和联调使用
// @Summary      Override vitals for a patient
// @Tags         Vitals
// @Accept       json
// @Produce      json
// @Param        id path int true "Patient ID"
// @Param        request body UpdateVitalsRequest true "Vitals fields to override"
// @Success      200 {object} LoginResponse
// @Failure      404 {object} ErrorResponse
// @Router       /patients/{id}/vitals [put]
// @Security     BearerAuth
func (c *VitalsController) UpdateVitals() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}

	var req UpdateVitalsRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}

	patientService := c.Container.GetService("patient").(services.InterfacePatientService)
	redisService := c.Container.GetService("redis").(services.InterfaceRedisService)
	vitalsService := c.Container.GetService("vitals").(services.InterfaceVitalsService)

	patient, err := patientService.GetPatientByID(id)
	if err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	update := &services.VitalsUpdate{
		HeartRate:        req.HeartRate,
		BloodPressure:    req.BloodPressure,
		OxygenSaturation: req.OxygenSaturation,
		Temperature:      req.Temperature,
		RespiratoryRate:  req.RespiratoryRate,
	}

	snap, err := vitalsService.UpdateVitals(c.Ctx.Request.Context(), patient.RoomNumber, update)
	if err != nil {
		c.Ctx.JSON(http.StatusBadGateway, gin.H{
			"code":    502,
			"message": "更新体征失败",
			"data":    nil,
		})
		return
	}

	if err := redisService.CacheVitals(patient.ID, snap); err != nil {
		c.Ctx.Error(err)
	}

	hub := c.Container.GetHub()
	hub.Emit(realtime.EventVitalsUpdate, gin.H{
		"patient_id":  patient.ID,
		"room_number": patient.RoomNumber,
		"vitals":      snap,
		"stale":       false,
		"timestamp":   snap.Timestamp.UnixMilli(),
	}, realtime.EmitOptions{
		PatientID: realtime.UintPtr(patient.ID),
	})

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    snap,
	})
}

// GetPollerStats 获取轮询引擎统计
// @Summary      Vitals poller statistics
// @Tags         Vitals
// @Produce      json
// @Success      200 {object} LoginResponse
// @Router       /vitals/stats [get]
// @Security     BearerAuth
func (c *VitalsController) GetPollerStats() {
	poller := c.Container.GetPoller()

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    poller.Stats(),
	})
}
