package controllers

import (
	"net/http"
	"strconv"

	"auracare-backend/models"
	"auracare-backend/services"
	"auracare-backend/services/container"

	"github.com/gin-gonic/gin"
)

// AuditLogController 处理审计日志查询请求。
// 审计日志只读，不提供任何修改接口。
type AuditLogController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAuditLogController 创建一个新的审计日志控制器
func NewAuditLogController(ctx *gin.Context, container *container.ServiceContainer) *AuditLogController {
	return &AuditLogController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleAuditLogFunc 返回一个处理审计日志请求的Gin处理函数
func HandleAuditLogFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAuditLogController(ctx, container)

		switch method {
		case "getLogs":
			controller.GetLogs()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// GetLogs 分页查询审计日志
// @Summary      List audit logs
// @Tags         Audit
// @Produce      json
// @Param        pageNum query int false "Page number"
// @Param        pageSize query int false "Page size"
// @Param        patient_id query int false "Filter by patient"
// @Param        action query string false "Filter by action"
// @Success      200 {object} LoginResponse
// @Router       /audit-logs [get]
// @Security     BearerAuth
func (c *AuditLogController) GetLogs() {
	var query models.PaginationQuery
	if err := c.Ctx.ShouldBindQuery(&query); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}

	var patientID uint
	if raw := c.Ctx.Query("patient_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			patientID = uint(id)
		}
	}

	auditService := c.Container.GetService("audit_log").(services.InterfaceAuditLogService)
	logs, page, err := auditService.GetLogs(&query, patientID, c.Ctx.Query("action"))
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
			"logs":       logs,
			"pagination": page,
		},
	})
}
