package bot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/models"
)

// FilterResult 冷却过滤结果
type FilterResult struct {
	Candidates      []*models.Game
	CooldownRelaxed bool // 所有游戏都在冷却期内，已放宽到最久未玩的
}

// SuggestionFilter 候选游戏冷却过滤器
// 每条消息在独立goroutine里处理，rng 需要互斥保护
type SuggestionFilter struct {
	cooldown time.Duration
	mu       sync.Mutex
	rng      *rand.Rand
}

// NewSuggestionFilter 创建过滤器
// rng 为nil时使用时间种子；测试中注入固定种子
func NewSuggestionFilter(cooldownHours int, rng *rand.Rand) *SuggestionFilter {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SuggestionFilter{
		cooldown: time.Duration(cooldownHours) * time.Hour,
		rng:      rng,
	}
}

// Filter 对按人数筛选后的游戏应用冷却过滤
//
// 冷却期内（最近一次游玩距今不足 cooldown）的游戏被剔除。
// 全部被剔除而输入非空时，放宽限制，返回最近一次游玩时间最早的
// 游戏（从未玩过视为最早），保证输入非空则输出非空。
// 输入本身为空时返回 ErrEmptyCandidates，与冷却耗尽是不同的终态。
// 返回前做均匀随机置换：按库序返回会让生成模型偏向列表首位。
func (f *SuggestionFilter) Filter(games []*models.Game, plays []*models.PlayRecord, now time.Time) (*FilterResult, error) {
	if len(games) == 0 {
		return nil, errors.New(errors.ErrEmptyCandidates)
	}

	lastPlayed := latestPlayByGame(plays)
	cutoff := now.Add(-f.cooldown)

	var candidates []*models.Game
	for _, game := range games {
		played, ok := lastPlayed[game.ID]
		if ok && played.After(cutoff) {
			continue
		}
		candidates = append(candidates, game)
	}

	relaxed := false
	if len(candidates) == 0 {
		candidates = leastRecentlyPlayed(games, lastPlayed)
		relaxed = true
	}

	f.mu.Lock()
	f.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	f.mu.Unlock()

	return &FilterResult{
		Candidates:      candidates,
		CooldownRelaxed: relaxed,
	}, nil
}

// latestPlayByGame 计算每个游戏最近一次游玩时间
func latestPlayByGame(plays []*models.PlayRecord) map[uint]time.Time {
	latest := make(map[uint]time.Time, len(plays))
	for _, play := range plays {
		if t, ok := latest[play.GameID]; !ok || play.PlayedAt.After(t) {
			latest[play.GameID] = play.PlayedAt
		}
	}
	return latest
}

// leastRecentlyPlayed 返回最近一次游玩时间最早的游戏
// 从未玩过的游戏视为最早；并列时全部返回
func leastRecentlyPlayed(games []*models.Game, lastPlayed map[uint]time.Time) []*models.Game {
	var (
		oldest    time.Time
		oldestSet bool
		hasNever  bool
	)
	for _, game := range games {
		played, ok := lastPlayed[game.ID]
		if !ok {
			hasNever = true
			continue
		}
		if !oldestSet || played.Before(oldest) {
			oldest = played
			oldestSet = true
		}
	}

	var result []*models.Game
	for _, game := range games {
		played, ok := lastPlayed[game.ID]
		if hasNever {
			if !ok {
				result = append(result, game)
			}
			continue
		}
		if played.Equal(oldest) {
			result = append(result, game)
		}
	}
	return result
}
