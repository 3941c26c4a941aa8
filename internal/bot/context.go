package bot

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wfunc/game-buddy/internal/models"
	"github.com/wfunc/game-buddy/internal/repository"
)

// 玩家人数取值范围
const (
	MinPlayerCount = 1
	MaxPlayerCount = 10
)

// SuggestionContext 一次建议请求的上下文
type SuggestionContext struct {
	PlayerCount int
	Games       []*models.Game      // 支持该人数的游戏
	RecentPlays []*models.PlayRecord // 回看窗口内的游玩记录
	Window      []Turn               // 当前频道的会话窗口
}

// ContextBuilder 上下文构建器，纯读取，无副作用
type ContextBuilder struct {
	gameRepo     repository.GameRepository
	playRepo     repository.PlayRepository
	conversation *ConversationStore
	lookbackDays int
	defaultCount int
}

// NewContextBuilder 创建上下文构建器
func NewContextBuilder(
	gameRepo repository.GameRepository,
	playRepo repository.PlayRepository,
	conversation *ConversationStore,
	lookbackDays int,
	defaultCount int,
) *ContextBuilder {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	if defaultCount <= 0 {
		defaultCount = 4
	}
	return &ContextBuilder{
		gameRepo:     gameRepo,
		playRepo:     playRepo,
		conversation: conversation,
		lookbackDays: lookbackDays,
		defaultCount: defaultCount,
	}
}

// Build 构建建议上下文
func (b *ContextBuilder) Build(ctx context.Context, channelID string, playerCount int, now time.Time) (*SuggestionContext, error) {
	playerCount = ClampPlayerCount(playerCount)

	games, err := b.gameRepo.FindForPlayerCount(ctx, playerCount)
	if err != nil {
		return nil, err
	}

	since := now.AddDate(0, 0, -b.lookbackDays)
	plays, err := b.playRepo.RecentSince(ctx, since)
	if err != nil {
		return nil, err
	}

	return &SuggestionContext{
		PlayerCount: playerCount,
		Games:       games,
		RecentPlays: plays,
		Window:      b.conversation.Window(channelID),
	}, nil
}

// DefaultPlayerCount 返回配置的默认人数
func (b *ContextBuilder) DefaultPlayerCount() int {
	return ClampPlayerCount(b.defaultCount)
}

// ClampPlayerCount 将人数约束到 [1,10]
func ClampPlayerCount(n int) int {
	if n < MinPlayerCount {
		return MinPlayerCount
	}
	if n > MaxPlayerCount {
		return MaxPlayerCount
	}
	return n
}

// 数字人数表达，如 "5 of us"、"3 people"、"7 players"、"2 peeps"
var digitCountPattern = regexp.MustCompile(`\b(\d+)\s*(?:of us|people|players?|peeps)`)

// 英文数词表达，如 "three people"、"five of us"
var wordCountPattern = regexp.MustCompile(`\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen)\s+(?:of us|people|players?|peeps)`)

// 英文数词映射
var wordToNum = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
}

// ExtractPlayerCount 从消息文本中提取显式人数
// 未提及人数时返回 (0, false)，由调用方回退到在线人数估计
func ExtractPlayerCount(text string) (int, bool) {
	content := strings.ToLower(text)

	if m := digitCountPattern.FindStringSubmatch(content); m != nil {
		count, err := strconv.Atoi(m[1])
		if err == nil && count >= 1 && count <= 99 {
			return count, true
		}
	}

	if m := wordCountPattern.FindStringSubmatch(content); m != nil {
		return wordToNum[m[1]], true
	}

	return 0, false
}
