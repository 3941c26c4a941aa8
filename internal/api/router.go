package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/game-buddy/internal/config"
	"github.com/wfunc/game-buddy/internal/middleware"
	"github.com/wfunc/game-buddy/internal/repository"
	"github.com/wfunc/game-buddy/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AIHealthChecker 生成服务健康探测
type AIHealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// Router 管理API路由器
type Router struct {
	engine            *gin.Engine
	db                *gorm.DB
	authHandler       *AuthHandler
	gameHandler       *GameHandler
	suggestionHandler *SuggestionHandler
	authMiddleware    *middleware.AuthMiddleware
	aiChecker         AIHealthChecker
	log               *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, cfg *config.Config, aiChecker AIHealthChecker, log *zap.Logger) *Router {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
		7*24*time.Hour,
	)

	gameRepo := repository.NewGameRepository(db)
	playRepo := repository.NewPlayRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)

	router := &Router{
		engine:            engine,
		db:                db,
		authHandler:       NewAuthHandler(cfg.Security.Admin, jwtManager),
		gameHandler:       NewGameHandler(gameRepo, playRepo),
		suggestionHandler: NewSuggestionHandler(suggestionRepo, playRepo),
		authMiddleware:    middleware.NewAuthMiddleware(jwtManager),
		aiChecker:         aiChecker,
		log:               log,
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查（不需要认证）
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		// 认证
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)
		}

		// 游戏库维护（需要认证）
		games := v1.Group("/games")
		games.Use(r.authMiddleware.RequireAuth())
		{
			games.GET("", r.gameHandler.ListGames)
			games.POST("", r.gameHandler.CreateGame)
			games.GET("/:id", r.gameHandler.GetGame)
			games.PUT("/:id", r.gameHandler.UpdateGame)
			games.DELETE("/:id", r.gameHandler.DeleteGame)
		}

		// 游玩记录
		plays := v1.Group("/plays")
		plays.Use(r.authMiddleware.RequireAuth())
		{
			plays.POST("", r.gameHandler.RecordPlay)
		}

		// 建议查询与接受
		suggestions := v1.Group("/suggestions")
		suggestions.Use(r.authMiddleware.RequireAuth())
		{
			suggestions.GET("", r.suggestionHandler.ListSuggestions)
			suggestions.POST("/:id/accept", r.suggestionHandler.AcceptSuggestion)
		}
	}
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	dbOK := false
	if sqlDB, err := r.db.DB(); err == nil {
		dbOK = sqlDB.Ping() == nil
	}

	aiOK := false
	if r.aiChecker != nil {
		aiOK = r.aiChecker.HealthCheck(c.Request.Context())
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !dbOK {
		// 游戏库不可达时服务算不健康；生成服务降级不影响存活
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:   status,
		Database: dbOK,
		AI:       aiOK,
	})
}

// Engine 返回底层gin引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
