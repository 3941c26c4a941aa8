package models

import (
	"fmt"
	"time"
)

// Game 游戏库条目
// 由管理接口录入，核心推荐逻辑只读
type Game struct {
	BaseModel
	Name       string  `gorm:"uniqueIndex;size:100;not null" json:"name"`
	MinPlayers int     `gorm:"default:1;index:idx_games_players" json:"min_players"`
	MaxPlayers int     `gorm:"default:10;index:idx_games_players" json:"max_players"`
	Category   string  `gorm:"size:50" json:"category"` // co-op, party, competitive, misc
	Tags       JSONMap `gorm:"type:json" json:"tags,omitempty"`
}

// PlayRecord 游玩记录，只追加不修改
type PlayRecord struct {
	BaseModel
	GameID      uint      `gorm:"not null;index" json:"game_id"`
	PlayedAt    time.Time `gorm:"index" json:"played_at"`
	PlayerCount int       `json:"player_count"`
	Notes       string    `gorm:"size:255" json:"notes"`

	// 关联，游戏删除时级联删除记录
	Game Game `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE" json:"game,omitempty"`
}

// Suggestion 建议记录
// GameID 可空（纯文本建议），游戏删除后置空
// Context 写入后不变，Accepted 是唯一会被更新的字段
type Suggestion struct {
	BaseModel
	GameID      *uint     `gorm:"index" json:"game_id,omitempty"`
	SuggestedAt time.Time `gorm:"index" json:"suggested_at"`
	Context     JSONMap   `gorm:"type:json" json:"context"`
	Accepted    bool      `gorm:"default:false" json:"accepted"`

	Game *Game `gorm:"foreignKey:GameID;constraint:OnDelete:SET NULL" json:"game,omitempty"`
}

// SupportsPlayerCount 判断游戏是否支持给定人数
func (g *Game) SupportsPlayerCount(n int) bool {
	return g.MinPlayers <= n && n <= g.MaxPlayers
}

// PlayerRange 返回人数区间的展示形式，如 "2-8"
func (g *Game) PlayerRange() string {
	if g.MinPlayers == g.MaxPlayers {
		return fmt.Sprintf("%d", g.MinPlayers)
	}
	return fmt.Sprintf("%d-%d", g.MinPlayers, g.MaxPlayers)
}
