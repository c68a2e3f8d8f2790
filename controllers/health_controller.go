package controllers

import (
	"net/http"

	"auracare-backend/services/container"

	"github.com/gin-gonic/gin"
)

// HealthCheckController 健康检查控制器
type HealthCheckController struct {
	Container *container.ServiceContainer
}

// NewHealthCheckController 创建健康检查控制器实例
func NewHealthCheckController(container *container.ServiceContainer) *HealthCheckController {
	return &HealthCheckController{Container: container}
}

// Ping 健康检查端点
func (h *HealthCheckController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"status":  "healthy",
	})
}

// Status 运行状态端点，带实时连接数和轮询统计
func (h *HealthCheckController) Status(c *gin.Context) {
	hub := h.Container.GetHub()
	poller := h.Container.GetPoller()

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": hub.SessionCount(),
		"poller":   poller.Stats(),
	})
}
