package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/models"
	"github.com/wfunc/game-buddy/internal/repository"
)

// GameHandler 游戏库维护处理器
type GameHandler struct {
	gameRepo repository.GameRepository
	playRepo repository.PlayRepository
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(gameRepo repository.GameRepository, playRepo repository.PlayRepository) *GameHandler {
	return &GameHandler{
		gameRepo: gameRepo,
		playRepo: playRepo,
	}
}

// ListGames 列出全部游戏
func (h *GameHandler) ListGames(c *gin.Context) {
	games, err := h.gameRepo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "查询游戏库失败",
		})
		return
	}

	resp := make([]GameResponse, 0, len(games))
	for _, game := range games {
		resp = append(resp, toGameResponse(game))
	}
	c.JSON(http.StatusOK, gin.H{"games": resp, "total": len(resp)})
}

// GetGame 查询单个游戏
func (h *GameHandler) GetGame(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	game, err := h.gameRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errors.ErrGameNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "GAME_NOT_FOUND",
				Message: "游戏不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "查询游戏失败",
		})
		return
	}

	c.JSON(http.StatusOK, toGameResponse(game))
}

// CreateGame 新增游戏
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	game := &models.Game{
		Name:       req.Name,
		MinPlayers: req.MinPlayers,
		MaxPlayers: req.MaxPlayers,
		Category:   req.Category,
		Tags:       req.Tags,
	}

	if err := h.gameRepo.Create(c.Request.Context(), game); err != nil {
		switch {
		case errors.Is(err, errors.ErrGameExists):
			c.JSON(http.StatusConflict, ErrorResponse{
				Code:    "GAME_EXISTS",
				Message: "同名游戏已存在",
			})
		case errors.Is(err, errors.ErrInvalidPlayerRange):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_PLAYER_RANGE",
				Message: "人数区间不合法",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Code:    "DB_ERROR",
				Message: "创建游戏失败",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, toGameResponse(game))
}

// UpdateGame 更新游戏
func (h *GameHandler) UpdateGame(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	game, err := h.gameRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errors.ErrGameNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "GAME_NOT_FOUND",
				Message: "游戏不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "查询游戏失败",
		})
		return
	}

	if req.Name != "" {
		game.Name = req.Name
	}
	if req.MinPlayers > 0 {
		game.MinPlayers = req.MinPlayers
	}
	if req.MaxPlayers > 0 {
		game.MaxPlayers = req.MaxPlayers
	}
	if req.Category != "" {
		game.Category = req.Category
	}
	if req.Tags != nil {
		game.Tags = req.Tags
	}

	if err := h.gameRepo.Update(c.Request.Context(), game); err != nil {
		if errors.Is(err, errors.ErrInvalidPlayerRange) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_PLAYER_RANGE",
				Message: "人数区间不合法",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "更新游戏失败",
		})
		return
	}

	c.JSON(http.StatusOK, toGameResponse(game))
}

// DeleteGame 删除游戏
func (h *GameHandler) DeleteGame(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.gameRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, errors.ErrGameNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "GAME_NOT_FOUND",
				Message: "游戏不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "删除游戏失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// RecordPlay 记录一次游玩
func (h *GameHandler) RecordPlay(c *gin.Context) {
	var req RecordPlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	// 游戏必须存在
	if _, err := h.gameRepo.FindByID(c.Request.Context(), req.GameID); err != nil {
		if errors.Is(err, errors.ErrGameNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "GAME_NOT_FOUND",
				Message: "游戏不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "查询游戏失败",
		})
		return
	}

	record := &models.PlayRecord{
		GameID:      req.GameID,
		PlayedAt:    req.PlayedAt,
		PlayerCount: req.PlayerCount,
		Notes:       req.Notes,
	}
	if err := h.playRepo.Record(c.Request.Context(), record); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "记录游玩失败",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        record.ID,
		"game_id":   record.GameID,
		"played_at": record.PlayedAt,
	})
}

// parseID 解析路径里的数字ID
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_ID",
			Message: "无效的ID",
		})
		return 0, false
	}
	return uint(id), true
}
