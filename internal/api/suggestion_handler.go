package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/logger"
	"github.com/wfunc/game-buddy/internal/models"
	"github.com/wfunc/game-buddy/internal/repository"
	"go.uber.org/zap"
)

// SuggestionHandler 建议查询与接受处理器
type SuggestionHandler struct {
	suggestionRepo repository.SuggestionRepository
	playRepo       repository.PlayRepository
}

// NewSuggestionHandler 创建建议处理器
func NewSuggestionHandler(suggestionRepo repository.SuggestionRepository, playRepo repository.PlayRepository) *SuggestionHandler {
	return &SuggestionHandler{
		suggestionRepo: suggestionRepo,
		playRepo:       playRepo,
	}
}

// ListSuggestions 分页列出近期建议
// query: days (默认30), page, page_size
func (h *SuggestionHandler) ListSuggestions(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 {
		days = 30
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	pagination := repository.NewPagination(page, pageSize)
	since := time.Now().AddDate(0, 0, -days)

	suggestions, err := h.suggestionRepo.RecentSince(c.Request.Context(), since, pagination)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "查询建议失败",
		})
		return
	}

	resp := make([]SuggestionResponse, 0, len(suggestions))
	for _, s := range suggestions {
		resp = append(resp, toSuggestionResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{
		"suggestions": resp,
		"page":        pagination.Page,
		"page_size":   pagination.PageSize,
		"total":       pagination.Total,
	})
}

// AcceptSuggestion 接受一条建议
// 置 Accepted 并为建议指向的游戏追加一条游玩记录
func (h *SuggestionHandler) AcceptSuggestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req AcceptSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	suggestion, err := h.suggestionRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    "SUGGESTION_NOT_FOUND",
				Message: "建议不存在",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "查询建议失败",
		})
		return
	}

	// 没有游戏引用的建议（游戏已删除或回复未点名）无法转成游玩记录
	if suggestion.GameID == nil {
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "NO_GAME_REFERENCE",
			Message: "该建议没有关联的游戏",
		})
		return
	}

	if err := h.suggestionRepo.MarkAccepted(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "DB_ERROR",
			Message: "更新建议失败",
		})
		return
	}

	record := &models.PlayRecord{
		GameID:      *suggestion.GameID,
		PlayerCount: req.PlayerCount,
		Notes:       req.Notes,
	}
	if err := h.playRepo.Record(c.Request.Context(), record); err != nil {
		// 建议已置位但记录失败，只记日志，响应中说明
		logger.Error("接受建议后追加游玩记录失败",
			zap.Uint("suggestion_id", id), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"accepted":      true,
			"play_recorded": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted":       true,
		"play_recorded":  true,
		"play_record_id": record.ID,
	})
}
