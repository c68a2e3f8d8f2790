package routes

import (
	"auracare-backend/config"
	"auracare-backend/controllers"
	_ "auracare-backend/docs"
	"auracare-backend/middleware"
	"auracare-backend/services/container"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter 初始化并返回配置好的路由和服务容器
func SetupRouter(db *gorm.DB, cfg *config.Config, redisClient *redis.Client) (*gin.Engine, *container.ServiceContainer) {
	// 初始化 Gin
	r := gin.Default()

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// 创建服务容器
	serviceContainer := container.NewServiceContainer(db, cfg, redisClient)
	// 初始化中间件
	middleware.InitAuthMiddleware(cfg)
	// 添加 Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 注册路由
	registerRoutes(r, serviceContainer)
	return r, serviceContainer
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 注册公共路由
	registerPublicRoutes(api, container)
	// 注册需要认证的路由
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	healthController := controllers.NewHealthCheckController(container)

	// 健康检查
	api.GET("/ping", healthController.Ping)
	api.GET("/status", healthController.Status)

	// 认证路由
	api.POST("/auth/login", controllers.HandleJWTFunc(container, "login"))

	// 实时连接入口，令牌在升级前校验
	api.GET("/ws", controllers.HandleWSFunc(container))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 医护路由：病人管理、告警处理、审计查询
	staff := api.Group("/")
	staff.Use(middleware.AuthenticateStaff())

	// 床旁/家属令牌签发
	staff.POST("/auth/patient-token", controllers.HandleJWTFunc(container, "patientToken"))

	// 病人路由
	staff.Group("/patients").GET("", controllers.HandlePatientFunc(container, "getPatients"))
	staff.Group("/patients").GET("/:id", controllers.HandlePatientFunc(container, "getPatient"))
	staff.Group("/patients").POST("", controllers.HandlePatientFunc(container, "createPatient"))
	staff.Group("/patients").PUT("/:id", controllers.HandlePatientFunc(container, "updatePatient"))
	staff.Group("/patients").POST("/:id/discharge", controllers.HandlePatientFunc(container, "dischargePatient"))
	staff.Group("/patients").GET("/:id/family", controllers.HandlePatientFunc(container, "getFamilyMembers"))

	// 体征路由
	staff.Group("/patients").GET("/:id/vitals", controllers.HandleVitalsFunc(container, "getVitals"))
	staff.Group("/patients").PUT("/:id/vitals", controllers.HandleVitalsFunc(container, "updateVitals"))
	staff.Group("/vitals").GET("/stats", controllers.HandleVitalsFunc(container, "getPollerStats"))

	// 告警路由
	staff.Group("/alerts").GET("", controllers.HandleAlertFunc(container, "getAlerts"))
	staff.Group("/alerts").GET("/active", controllers.HandleAlertFunc(container, "getActiveAlerts"))
	staff.Group("/alerts").POST("/:id/acknowledge", controllers.HandleAlertFunc(container, "acknowledgeAlert"))
	staff.Group("/alerts").POST("/:id/resolve", controllers.HandleAlertFunc(container, "resolveAlert"))

	// 审计日志路由
	staff.Group("/audit-logs").GET("", controllers.HandleAuditLogFunc(container, "getLogs"))

	// 病人/家属终端路由：仅限发起呼叫
	any := api.Group("/")
	any.Use(middleware.AuthenticateAny())
	any.POST("/alerts/request", controllers.HandleAlertFunc(container, "createRequestAlert"))
}
