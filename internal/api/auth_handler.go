package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/game-buddy/internal/config"
	"github.com/wfunc/game-buddy/internal/logger"
	"github.com/wfunc/game-buddy/internal/utils"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器
// 管理面只有配置里的单个管理员账号，没有用户表
type AuthHandler struct {
	admin      config.AdminConfig
	jwtManager *utils.JWTManager
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(admin config.AdminConfig, jwtManager *utils.JWTManager) *AuthHandler {
	return &AuthHandler{
		admin:      admin,
		jwtManager: jwtManager,
	}
}

// Login 管理员登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.admin.Username)) != 1 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "LOGIN_FAILED",
			Message: "用户名或密码错误",
		})
		return
	}

	ok, err := utils.VerifyPassword(req.Password, h.admin.PasswordHash)
	if err != nil || !ok {
		logger.Warn("管理员登录失败",
			zap.String("username", req.Username),
			zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "LOGIN_FAILED",
			Message: "用户名或密码错误",
		})
		return
	}

	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "生成会话失败",
		})
		return
	}

	access, err := h.jwtManager.GenerateAccessToken(req.Username, "admin", sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "生成令牌失败",
		})
		return
	}
	refresh, err := h.jwtManager.GenerateRefreshToken(req.Username, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "生成令牌失败",
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(h.jwtManager.GetTokenExpiry("access").Seconds()),
	})
}

// RefreshToken 刷新访问令牌
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	access, err := h.jwtManager.RefreshAccessToken(req.RefreshToken, "admin")
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "INVALID_TOKEN",
			Message: "刷新令牌无效",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  access,
		RefreshToken: req.RefreshToken,
		ExpiresIn:    int64(h.jwtManager.GetTokenExpiry("access").Seconds()),
	})
}
