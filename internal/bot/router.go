package bot

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/logger"
	"github.com/wfunc/game-buddy/internal/models"
	"github.com/wfunc/game-buddy/internal/repository"
	"go.uber.org/zap"
)

// Inbound 入站消息事件
type Inbound struct {
	ChannelID   string
	UserID      string
	Username    string
	Text        string
	MentionsBot bool
}

// PresenceFunc 返回频道的在线人数估计
// 由传输适配层提供；返回0表示未知，回退到配置默认值
type PresenceFunc func(channelID string) int

// 固定回复文案
const (
	emptyLibraryText   = "hey your game library is empty! ask an admin to add some games"
	storeTroubleText   = "having trouble reaching my game shelf right now, try again in a bit"
	casualFallbackText = "yo what's up?"
)

// 生成服务不可用时的确定性建议模板
var fallbackTemplates = []string{
	"how about %s?",
	"maybe %s",
	"%s could be good",
	"try %s?",
}

// Router 按消息组合各阶段组件，产出最终回复与入库副作用
type Router struct {
	conversation   *ConversationStore
	limiter        *RateLimiter
	builder        *ContextBuilder
	filter         *SuggestionFilter
	generator      *Generator
	polisher       *Polisher
	gameRepo       repository.GameRepository
	suggestionRepo repository.SuggestionRepository
	presence       PresenceFunc
	rngMu          sync.Mutex // Handle 并发执行，rng 不是并发安全的
	rng            *rand.Rand
	rateLimitMsg   string
}

// RouterOptions 路由器装配参数
type RouterOptions struct {
	Conversation   *ConversationStore
	Limiter        *RateLimiter
	Builder        *ContextBuilder
	Filter         *SuggestionFilter
	Generator      *Generator
	Polisher       *Polisher
	GameRepo       repository.GameRepository
	SuggestionRepo repository.SuggestionRepository
	Presence       PresenceFunc
	Rng            *rand.Rand
	RateLimitMsg   string
}

// NewRouter 创建路由器
func NewRouter(opts RouterOptions) *Router {
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rateLimitMsg := opts.RateLimitMsg
	if rateLimitMsg == "" {
		rateLimitMsg = "whoa slow down a sec!"
	}
	return &Router{
		conversation:   opts.Conversation,
		limiter:        opts.Limiter,
		builder:        opts.Builder,
		filter:         opts.Filter,
		generator:      opts.Generator,
		polisher:       opts.Polisher,
		gameRepo:       opts.GameRepo,
		suggestionRepo: opts.SuggestionRepo,
		presence:       opts.Presence,
		rng:            rng,
		rateLimitMsg:   rateLimitMsg,
	}
}

// Handle 处理一条入站消息，返回回复文本
// 返回空串表示无需回复。任何阶段的失败都只影响本条消息。
func (r *Router) Handle(ctx context.Context, msg Inbound) string {
	// 先取窗口再追加，闲聊提示中不重复当前消息
	window := r.conversation.Window(msg.ChannelID)
	r.conversation.Append(msg.ChannelID, Turn{
		ChannelID: msg.ChannelID,
		Username:  msg.Username,
		Text:      msg.Text,
		Timestamp: time.Now(),
	})

	if !msg.MentionsBot {
		return ""
	}

	requestID := uuid.NewString()
	log := logger.GetLogger().With(
		zap.String("request_id", requestID),
		zap.String("channel", msg.ChannelID),
		zap.String("user", msg.UserID),
	)

	if !r.limiter.Allow(msg.UserID, time.Now()) {
		log.Debug("触发限流")
		return r.rateLimitMsg
	}

	intent := Classify(msg.Text)
	log.Info("处理消息", zap.String("intent", intent.String()))

	if intent == IntentSuggestion {
		return r.handleSuggestion(ctx, msg, log)
	}
	return r.handleCasual(ctx, msg, window, log)
}

// handleSuggestion 建议请求处理
func (r *Router) handleSuggestion(ctx context.Context, msg Inbound, log *zap.Logger) string {
	now := time.Now()

	// 游戏库为空是独立终态，不发起生成调用
	total, err := r.gameRepo.Count(ctx)
	if err != nil {
		log.Error("查询游戏库失败", zap.Error(err))
		return storeTroubleText
	}
	if total == 0 {
		return emptyLibraryText
	}

	playerCount := r.resolvePlayerCount(msg)

	sctx, err := r.builder.Build(ctx, msg.ChannelID, playerCount, now)
	if err != nil {
		log.Error("构建上下文失败", zap.Error(err))
		return storeTroubleText
	}

	result, err := r.filter.Filter(sctx.Games, sctx.RecentPlays, now)
	if err != nil {
		if errors.Is(err, errors.ErrEmptyCandidates) {
			// 人数不匹配与冷却耗尽是不同的终态，文案不同
			return r.noMatchingGamesText(ctx, sctx.PlayerCount)
		}
		log.Error("候选过滤失败", zap.Error(err))
		return storeTroubleText
	}

	log.Info("候选过滤完成",
		zap.Int("player_count", sctx.PlayerCount),
		zap.Int("candidates", len(result.Candidates)),
		zap.Bool("cooldown_relaxed", result.CooldownRelaxed),
	)

	reply, err := r.generator.GenerateSuggestion(ctx, sctx, result.Candidates, msg.Username, now)
	if err != nil {
		// 生成不可用时降级为确定性回复，不向用户暴露错误
		log.Warn("生成不可用，使用确定性回复", zap.Error(err))
		reply = r.fallbackSuggestion(result.Candidates)
	}

	polished := r.polisher.Polish(reply, StrictnessLight)

	// 入库是尽力而为的追加，失败只记日志，不影响已生成的回复
	r.recordSuggestions(ctx, polished, result, sctx, msg.Username, log)

	return polished
}

// handleCasual 闲聊处理
func (r *Router) handleCasual(ctx context.Context, msg Inbound, window []Turn, log *zap.Logger) string {
	reply, err := r.generator.GenerateCasual(ctx, msg.Text, msg.Username, window)
	if err != nil {
		log.Warn("闲聊生成不可用", zap.Error(err))
		return casualFallbackText
	}
	return r.polisher.Polish(reply, StrictnessStrict)
}

// resolvePlayerCount 解析玩家人数
// 消息里显式提到的人数优先，其次是在线人数估计，最后是配置默认值
func (r *Router) resolvePlayerCount(msg Inbound) int {
	if count, ok := ExtractPlayerCount(msg.Text); ok {
		return ClampPlayerCount(count)
	}
	if r.presence != nil {
		if count := r.presence(msg.ChannelID); count > 0 {
			return ClampPlayerCount(count)
		}
	}
	return r.builder.DefaultPlayerCount()
}

// noMatchingGamesText 人数不匹配时的回复，附上邻近的可用人数区间
func (r *Router) noMatchingGamesText(ctx context.Context, playerCount int) string {
	games, err := r.gameRepo.GetAll(ctx)
	if err != nil || len(games) == 0 {
		return fmt.Sprintf("don't have many games for %d people", playerCount)
	}

	rangeSet := make(map[string]struct{})
	for _, game := range games {
		if game.MinPlayers <= playerCount+2 && game.MaxPlayers >= playerCount-2 {
			rangeSet[game.PlayerRange()] = struct{}{}
		}
	}
	if len(rangeSet) == 0 {
		return fmt.Sprintf("don't have many games for %d people", playerCount)
	}

	ranges := make([]string, 0, len(rangeSet))
	for pr := range rangeSet {
		ranges = append(ranges, pr)
	}
	sort.Strings(ranges)
	if len(ranges) > 3 {
		ranges = ranges[:3]
	}

	return fmt.Sprintf("hmm, no games for exactly %d players. got games for %s though",
		playerCount, strings.Join(ranges, ", "))
}

// fallbackSuggestion 生成不可用时的确定性建议
func (r *Router) fallbackSuggestion(candidates []*models.Game) string {
	if len(candidates) == 0 {
		return "hmm not sure what to suggest right now"
	}

	limit := len(candidates)
	if limit > 5 {
		limit = 5
	}
	r.rngMu.Lock()
	game := candidates[r.rng.Intn(limit)]
	template := fallbackTemplates[r.rng.Intn(len(fallbackTemplates))]
	r.rngMu.Unlock()
	return fmt.Sprintf(template, game.Name)
}

// recordSuggestions 记录本次建议，尽力而为
// 从回复文本里匹配提到的候选游戏名；一个都没匹配到时记录一条无游戏引用的建议
func (r *Router) recordSuggestions(ctx context.Context, reply string, result *FilterResult, sctx *SuggestionContext, requester string, log *zap.Logger) {
	snapshot := models.JSONMap{
		"player_count":     sctx.PlayerCount,
		"requester":        requester,
		"filtered_count":   len(result.Candidates),
		"cooldown_relaxed": result.CooldownRelaxed,
	}

	replyLower := strings.ToLower(reply)
	recorded := 0
	for _, game := range result.Candidates {
		if !strings.Contains(replyLower, strings.ToLower(game.Name)) {
			continue
		}
		gameID := game.ID
		if err := r.suggestionRepo.Record(ctx, &models.Suggestion{
			GameID:  &gameID,
			Context: snapshot,
		}); err != nil {
			log.Warn("建议入库失败", zap.Error(err), zap.String("game", game.Name))
			continue
		}
		recorded++
	}

	if recorded == 0 {
		if err := r.suggestionRepo.Record(ctx, &models.Suggestion{Context: snapshot}); err != nil {
			log.Warn("建议入库失败", zap.Error(err))
		}
	}
}
