package container

import (
	"context"
	"log"
	"sync"
	"time"

	"auracare-backend/config"
	"auracare-backend/realtime"
	"auracare-backend/services"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config
	redis  *redis.Client

	// 基础服务
	jwtService services.InterfaceJWTService

	// 实时推送
	hub *realtime.Hub

	// 数据存储服务
	redisService services.InterfaceRedisService

	// MQTT告警推送服务
	mqttAlertService services.InterfaceMQTTAlertService

	// 业务服务
	patientService  services.InterfacePatientService
	staffService    services.InterfaceStaffService
	alertService    services.InterfaceAlertService
	auditLogService services.InterfaceAuditLogService
	vitalsService   services.InterfaceVitalsService

	// 体征轮询引擎
	vitalsPoller *services.VitalsPoller

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}

	if cfg == nil {
		panic("配置为空")
	}

	// 测试Redis连接
	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis连接测试失败: %v，将不使用Redis缓存", err)
		}
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
		redis:  redisClient,
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 初始化基础服务
	c.jwtService = services.NewJWTService(c.config)

	// 初始化实时推送中心
	c.hub = realtime.NewHub(c.config.HeartbeatInterval)

	// 初始化Redis服务
	if c.redis != nil {
		c.redisService = services.NewRedisServiceWithClient(c.redis)
	} else {
		c.redisService = services.NewRedisService(c.config)
	}

	// 初始化MQTT告警推送服务
	c.mqttAlertService = services.NewMQTTAlertService(c.config)
	if err := c.mqttAlertService.Connect(); err != nil {
		log.Printf("MQTT服务连接失败: %v", err)
	}

	// 初始化业务服务
	c.patientService = services.NewPatientService(c.db)
	c.staffService = services.NewStaffService(c.db)
	c.alertService = services.NewAlertService(c.db)
	c.auditLogService = services.NewAuditLogService(c.db)
	c.vitalsService = services.NewVitalsService(c.config)

	// 初始化体征轮询引擎
	c.vitalsPoller = services.NewVitalsPoller(
		c.config,
		c.patientService,
		c.vitalsService,
		c.redisService,
		c.alertService,
		c.auditLogService,
		c.mqttAlertService,
		c.hub,
	)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "hub":
		return c.hub
	case "redis":
		return c.redisService
	case "mqtt_alert":
		return c.mqttAlertService
	case "patient":
		return c.patientService
	case "staff":
		return c.staffService
	case "alert":
		return c.alertService
	case "audit_log":
		return c.auditLogService
	case "vitals":
		return c.vitalsService
	case "poller":
		return c.vitalsPoller
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// GetHub 获取实时推送中心
func (c *ServiceContainer) GetHub() *realtime.Hub {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hub
}

// GetPoller 获取体征轮询引擎
func (c *ServiceContainer) GetPoller() *services.VitalsPoller {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vitalsPoller
}
