package api

import (
	"time"

	"github.com/wfunc/game-buddy/internal/models"
)

// ErrorResponse 统一错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 登录响应
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // 秒
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateGameRequest 新增游戏请求
type CreateGameRequest struct {
	Name       string                 `json:"name" binding:"required"`
	MinPlayers int                    `json:"min_players" binding:"required,min=1"`
	MaxPlayers int                    `json:"max_players" binding:"required,min=1"`
	Category   string                 `json:"category"`
	Tags       map[string]interface{} `json:"tags"`
}

// UpdateGameRequest 更新游戏请求
type UpdateGameRequest struct {
	Name       string                 `json:"name"`
	MinPlayers int                    `json:"min_players"`
	MaxPlayers int                    `json:"max_players"`
	Category   string                 `json:"category"`
	Tags       map[string]interface{} `json:"tags"`
}

// GameResponse 游戏响应
type GameResponse struct {
	ID          uint                   `json:"id"`
	Name        string                 `json:"name"`
	MinPlayers  int                    `json:"min_players"`
	MaxPlayers  int                    `json:"max_players"`
	PlayerRange string                 `json:"player_range"`
	Category    string                 `json:"category,omitempty"`
	Tags        map[string]interface{} `json:"tags,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// RecordPlayRequest 记录游玩请求
type RecordPlayRequest struct {
	GameID      uint      `json:"game_id" binding:"required"`
	PlayedAt    time.Time `json:"played_at"`
	PlayerCount int       `json:"player_count"`
	Notes       string    `json:"notes"`
}

// SuggestionResponse 建议响应
type SuggestionResponse struct {
	ID          uint                   `json:"id"`
	GameID      *uint                  `json:"game_id,omitempty"`
	GameName    string                 `json:"game_name,omitempty"`
	SuggestedAt time.Time              `json:"suggested_at"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Accepted    bool                   `json:"accepted"`
}

// AcceptSuggestionRequest 接受建议请求
type AcceptSuggestionRequest struct {
	PlayerCount int    `json:"player_count"`
	Notes       string `json:"notes"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status   string `json:"status"`
	Database bool   `json:"database"`
	AI       bool   `json:"ai"`
}

// toGameResponse 模型转响应
func toGameResponse(game *models.Game) GameResponse {
	return GameResponse{
		ID:          game.ID,
		Name:        game.Name,
		MinPlayers:  game.MinPlayers,
		MaxPlayers:  game.MaxPlayers,
		PlayerRange: game.PlayerRange(),
		Category:    game.Category,
		Tags:        game.Tags,
		CreatedAt:   game.CreatedAt,
	}
}

// toSuggestionResponse 模型转响应
func toSuggestionResponse(s *models.Suggestion) SuggestionResponse {
	resp := SuggestionResponse{
		ID:          s.ID,
		GameID:      s.GameID,
		SuggestedAt: s.SuggestedAt,
		Context:     s.Context,
		Accepted:    s.Accepted,
	}
	if s.Game != nil {
		resp.GameName = s.Game.Name
	}
	return resp
}
