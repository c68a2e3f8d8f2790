package controllers

import (
	"net/http"
	"strconv"

	"auracare-backend/models"
	"auracare-backend/realtime"
	"auracare-backend/services"
	"auracare-backend/services/container"

	"github.com/gin-gonic/gin"
)

// InterfaceAlertController 定义告警控制器接口
type InterfaceAlertController interface {
	GetAlerts()
	GetActiveAlerts()
	AcknowledgeAlert()
	ResolveAlert()
	CreateRequestAlert()
}

// AlertController 处理告警相关请求
type AlertController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAlertController 创建一个新的告警控制器
func NewAlertController(ctx *gin.Context, container *container.ServiceContainer) *AlertController {
	return &AlertController{
		Ctx:       ctx,
		Container: container,
	}
}

// RequestAlertBody 病人呼叫请求
type RequestAlertBody struct {
	PatientID uint   `json:"patient_id" binding:"required" example:"1"`
	Message   string `json:"message" example:"病人请求协助"`
}

// HandleAlertFunc 返回一个处理告警请求的Gin处理函数
func HandleAlertFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAlertController(ctx, container)

		switch method {
		case "getAlerts":
			controller.GetAlerts()
		case "getActiveAlerts":
			controller.GetActiveAlerts()
		case "acknowledgeAlert":
			controller.AcknowledgeAlert()
		case "resolveAlert":
			controller.ResolveAlert()
		case "createRequestAlert":
			controller.CreateRequestAlert()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// GetAlerts 分页获取告警列表
// @Summary      List alerts
// @Tags         Alert
// @Produce      json
// @Param        pageNum query int false "Page number"
// @Param        pageSize query int false "Page size"
// @Param        status query string false "Filter by status"
// @Param        patient_id query int false "Filter by patient"
// @Success      200 {object} LoginResponse
// @Router       /alerts [get]
// @Security     BearerAuth
func (c *AlertController) GetAlerts() {
	var query models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&query); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}
	query.Desc = true

	var patientID uint
	if raw := c.Ctx.Query("patient_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			patientID = uint(id)
		}
	}

	alertService := c.Container.GetService("alert").(services.InterfaceAlertService)
	alerts, page, err := alertService.GetAlerts(&query, models.AlertStatus(c.Ctx.Query("status")), patientID)
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
		"data": gin.H{
			"alerts":     alerts,
			"pagination": page,
		},
	})
}

// GetActiveAlerts 获取未处理告警
// @Summary      List active alerts
// @Tags         Alert
// @Produce      json
// @Param        patient_id query int false "Filter by patient"
// @Success      200 {object} LoginResponse
// @Router       /alerts/active [get]
// @Security     BearerAuth
func (c *AlertController) GetActiveAlerts() {
	var patientID uint
	if raw := c.Ctx.Query("patient_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			patientID = uint(id)
		}
	}

	alertService := c.Container.GetService("alert").(services.InterfaceAlertService)
	alerts, err := alertService.GetActiveAlerts(patientID)
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
		"data":    alerts,
	})
}

// AcknowledgeAlert 确认告警并广播状态变化
// @Summary      Acknowledge an alert
// @Tags         Alert
// @Produce      json
// @Param        id path int true "Alert ID"
// @Success      200 {object} LoginResponse
// @Failure      404 {object} ErrorResponse
// @Router       /alerts/{id}/acknowledge [post]
// @Security     BearerAuth
func (c *AlertController) AcknowledgeAlert() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}
	staffID := currentUserID(c.Ctx)

	alertService := c.Container.GetService("alert").(services.InterfaceAlertService)
	auditService := c.Container.GetService("audit_log").(services.InterfaceAuditLogService)

	alert, err := alertService.AcknowledgeAlert(id, staffID)
	if err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	if _, err := auditService.Record("alert_acknowledged", "alert", &alert.ID, alert.PatientID, &staffID, nil); err != nil {
		c.Ctx.Error(err)
	}

	hub := c.Container.GetHub()
	hub.Emit(realtime.EventAlertAcknowledged, alert, realtime.EmitOptions{
		PatientID: realtime.UintPtr(alert.PatientID),
	})
	hub.Emit(realtime.EventHistoryUpdate, gin.H{
		"patient_id": alert.PatientID,
		"action":     "alert_acknowledged",
		"alert_id":   alert.ID,
	}, realtime.EmitOptions{
		PatientID: realtime.UintPtr(alert.PatientID),
	})

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    alert,
	})
}

// ResolveAlert 处理完成告警并广播状态变化
// @Summary      Resolve an alert
// @Tags         Alert
// @Produce      json
// @Param        id path int true "Alert ID"
// @Success      200 {object} LoginResponse
// @Failure      404 {object} ErrorResponse
// @Router       /alerts/{id}/resolve [post]
// @Security     BearerAuth
func (c *AlertController) ResolveAlert() {
	id, ok := parseUintParam(c.Ctx, "id")
	if !ok {
		return
	}
	staffID := currentUserID(c.Ctx)

	alertService := c.Container.GetService("alert").(services.InterfaceAlertService)
	auditService := c.Container.GetService("audit_log").(services.InterfaceAuditLogService)

	alert, err := alertService.ResolveAlert(id, staffID)
	if err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	if _, err := auditService.Record("alert_resolved", "alert", &alert.ID, alert.PatientID, &staffID, nil); err != nil {
		c.Ctx.Error(err)
	}

	hub := c.Container.GetHub()
	hub.Emit(realtime.EventAlertResolved, alert, realtime.EmitOptions{
		PatientID: realtime.UintPtr(alert.PatientID),
	})
	hub.Emit(realtime.EventHistoryUpdate, gin.H{
		"patient_id": alert.PatientID,
		"action":     "alert_resolved",
		"alert_id":   alert.ID,
	}, realtime.EmitOptions{
		PatientID: realtime.UintPtr(alert.PatientID),
	})

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    alert,
	})
}

// CreateRequestAlert 病人呼叫，床旁终端或家属终端发起
// @Summary      Create a patient request alert
// @Tags         Alert
// @Accept       json
// @Produce      json
// @Param        request body RequestAlertBody true "Request alert body"
// @Success      200 {object} LoginResponse
// @Router       /alerts/request [post]
// @Security     BearerAuth
func (c *AlertController) CreateRequestAlert() {
	var req RequestAlertBody
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}

	alertService := c.Container.GetService("alert").(services.InterfaceAlertService)
	auditService := c.Container.GetService("audit_log").(services.InterfaceAuditLogService)

	alert, err := alertService.CreatePatientRequestAlert(req.PatientID, req.Message)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	if _, err := auditService.Record("patient_request", "alert", &alert.ID, alert.PatientID, nil, gin.H{
		"message": req.Message,
	}); err != nil {
		c.Ctx.Error(err)
	}

	hub := c.Container.GetHub()
	hub.Emit(realtime.EventAlertCreated, alert, realtime.EmitOptions{
		PatientID: realtime.UintPtr(alert.PatientID),
	})

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    alert,
	})
}
