package middleware

import (
	"net/http"
	"strings"

	"auracare-backend/config"
	"auracare-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

var jwtService services.InterfaceJWTService

// InitAuthMiddleware 初始化认证中间件
func InitAuthMiddleware(cfg *config.Config) {
	jwtService = services.NewJWTService(cfg)
}

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	// 检查并移除 "Bearer " 前缀
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// authenticate 校验令牌并把claims写入上下文，allowed 为空表示任何角色均可
func authenticate(c *gin.Context, allowed ...string) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "Authorization header is required",
			"data":    nil,
		})
		c.Abort()
		return false
	}

	tokenString := extractToken(authHeader)
	token, err := jwtService.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "Invalid token",
			"data":    nil,
		})
		c.Abort()
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    401,
			"message": "Invalid token claims",
			"data":    nil,
		})
		c.Abort()
		return false
	}

	role, _ := claims["role"].(string)
	if len(allowed) > 0 {
		permitted := false
		for _, r := range allowed {
			if role == r {
				permitted = true
				break
			}
		}
		if !permitted {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "Insufficient permissions",
				"data":    nil,
			})
			c.Abort()
			return false
		}
	}

	// 存储claims到上下文
	c.Set("userID", claims["user_id"])
	c.Set("role", role)
	if patientID, exists := claims["patient_id"]; exists && patientID != nil {
		c.Set("patientID", patientID)
	}
	c.Set("claims", claims)
	return true
}

// AuthenticateStaff 验证医护人员权限（含医生和管理员）
func AuthenticateStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, "staff", "doctor", "admin") {
			c.Next()
		}
	}
}

// AuthenticateAdmin 验证系统管理员权限
func AuthenticateAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, "admin") {
			c.Next()
		}
	}
}

// AuthenticateAny 验证任意已认证身份（含病人和家属终端）
func AuthenticateAny() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c) {
			c.Next()
		}
	}
}
