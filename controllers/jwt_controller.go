package controllers

import (
	"net/http"
	"strconv"

	"auracare-backend/services"
	"auracare-backend/services/container"

	"github.com/gin-gonic/gin"
)

// InterfaceJWTController 定义认证控制器接口
type InterfaceJWTController interface {
	Login()
	IssuePatientToken()
}

// JWTController 处理身份验证请求
type JWTController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewJWTController 创建一个新的认证控制器
func NewJWTController(ctx *gin.Context, container *container.ServiceContainer) *JWTController {
	return &JWTController{
		Ctx:       ctx,
		Container: container,
	}
}

// LoginRequest 表示登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

// LoginResponse 表示登录响应
type LoginResponse struct {
	Code    int         `json:"code" example:"0"`
	Message string      `json:"message" example:"Login successful"`
	Data    interface{} `json:"data"`
}

// PatientTokenRequest 表示为床旁/家属终端签发令牌的请求
type PatientTokenRequest struct {
	PatientID      uint   `json:"patient_id" binding:"required" example:"1"`
	Role           string `json:"role" binding:"required" example:"patient"` // patient / family
	FamilyMemberID uint   `json:"family_member_id,omitempty" example:"3"`
}

// ErrorResponse 表示错误响应
type ErrorResponse struct {
	Code    int         `json:"code" example:"401"`
	Message string      `json:"message" example:"Invalid username or password"`
	Data    interface{} `json:"data"`
}

// HandleJWTFunc 返回一个处理JWT认证请求的Gin处理函数
func HandleJWTFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewJWTController(ctx, container)

		switch method {
		case "login":
			controller.Login()
		case "patientToken":
			controller.IssuePatientToken()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// Login 处理医护人员登录
// @Summary      Staff Login
// @Description  Process staff login and return JWT token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request parameters"
// @Success      200  {object}  LoginResponse  "Success response with token"
// @Failure      400  {object}  ErrorResponse  "Bad request"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (c *JWTController) Login() {
	var req LoginRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}

	staffService := c.Container.GetService("staff").(services.InterfaceStaffService)
	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)

	staff, err := staffService.Authenticate(req.Username, req.Password)
	if err != nil {
		c.Ctx.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "Invalid username or password",
			"data":    nil,
		})
		return
	}

	token, err := jwtService.GenerateToken(staff.ID, string(staff.Role), nil)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "Failed to generate token",
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Login successful",
		"data": gin.H{
			"token":      token,
			"user_id":    staff.ID,
			"role":       staff.Role,
			"username":   staff.Username,
			"created_at": staff.CreatedAt,
		},
	})
}

// IssuePatientToken 为床旁终端或家属终端签发令牌，仅医护可调用
// @Summary      Issue patient/family token
// @Description  Issue a JWT for a bedside or family terminal bound to a patient
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body PatientTokenRequest true "Token request parameters"
// @Success      200  {object}  LoginResponse  "Success response with token"
// @Failure      400  {object}  ErrorResponse  "Bad request"
// @Failure      404  {object}  ErrorResponse  "Patient not found"
// @Router       /auth/patient-token [post]
// @Security     BearerAuth
func (c *JWTController) IssuePatientToken() {
	var req PatientTokenRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "Invalid request parameters",
			"data":    nil,
		})
		return
	}
	if req.Role != "patient" && req.Role != "family" {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "role 必须是 patient 或 family",
			"data":    nil,
		})
		return
	}

	patientService := c.Container.GetService("patient").(services.InterfacePatientService)
	jwtService := c.Container.GetService("jwt").(services.InterfaceJWTService)

	patient, err := patientService.GetPatientByID(req.PatientID)
	if err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	// 床旁终端以病人ID为身份；家属终端以家属ID为身份并绑定病人
	userID := patient.ID
	if req.Role == "family" {
		if req.FamilyMemberID == 0 {
			c.Ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "family_member_id 不能为空",
				"data":    nil,
			})
			return
		}
		linked, err := patientService.IsFamilyOf(req.FamilyMemberID, patient.ID)
		if err != nil || !linked {
			c.Ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "家属与病人不关联",
				"data":    nil,
			})
			return
		}
		userID = req.FamilyMemberID
	}

	token, err := jwtService.GenerateToken(userID, req.Role, &patient.ID)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "Failed to generate token",
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Token issued",
		"data": gin.H{
			"token":      token,
			"user_id":    userID,
			"role":       req.Role,
			"patient_id": patient.ID,
		},
	})
}

// parseUintParam 解析路径中的数字ID参数
func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的ID参数",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

// currentUserID 从认证中间件写入的上下文中取当前用户ID
func currentUserID(ctx *gin.Context) uint {
	if v, exists := ctx.Get("userID"); exists {
		switch id := v.(type) {
		case float64:
			return uint(id)
		case uint:
			return id
		case int:
			return uint(id)
		}
	}
	return 0
}
