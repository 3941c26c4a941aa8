package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/game-buddy/internal/models"
)

// TextGenerator 生成服务抽象，便于测试替换
type TextGenerator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// 提示中最多列出的候选游戏数和近期记录数，控制提示长度
const (
	defaultPromptGames = 6
	maxPromptPlays     = 3
)

// 闲聊角色提示
const casualSystemPrompt = `You are Mitch, a gaming buddy in a group chat with calm, confident "team captain" energy.

TONE & STYLE:
- Casual gamer language (lowercase, "lol", "nah", "idk")
- Short responses: 1-2 sentences max
- Warm, ready-to-go energy

RULES:
1. You are NOT suggesting games right now - this is casual chat
2. Respond ONLY to the message that mentioned you
3. Only reference recent conversation if DIRECTLY relevant
4. NO roleplay actions, NO long paragraphs`

// 建议角色提示
const suggestionSystemPrompt = `You are Mitch, a gaming buddy with confident "team captain" energy, suggesting games for the group.

RESPONSE STYLE:
- Pick 1-2 games from the provided list only
- Short reason why it fits (1 sentence)
- Be decisive and brief, end with a nudge like "Lock it in?"
- Never use uncertain language or list everything without choosing`

// Generator 回复生成器，组装角色提示并调用生成服务
type Generator struct {
	client   TextGenerator
	maxGames int // 提示中列出的候选游戏上限
}

// NewGenerator 创建回复生成器
// maxGames 不大于0时使用默认上限
func NewGenerator(client TextGenerator, maxGames int) *Generator {
	if maxGames <= 0 {
		maxGames = defaultPromptGames
	}
	return &Generator{client: client, maxGames: maxGames}
}

// GenerateSuggestion 生成建议回复，单次调用，不自动重试
func (g *Generator) GenerateSuggestion(ctx context.Context, sctx *SuggestionContext, candidates []*models.Game, requester string, now time.Time) (string, error) {
	prompt := buildSuggestionPrompt(sctx, candidates, requester, now, g.maxGames)
	return g.client.Generate(ctx, prompt, suggestionSystemPrompt)
}

// GenerateCasual 生成闲聊回复
// 失败时去掉会话窗口精简上下文再试一次，总共最多两次调用
func (g *Generator) GenerateCasual(ctx context.Context, message, requester string, window []Turn) (string, error) {
	text, err := g.client.Generate(ctx, buildCasualPrompt(message, requester, window), casualSystemPrompt)
	if err == nil {
		return text, nil
	}

	if len(window) == 0 {
		return "", err
	}
	return g.client.Generate(ctx, buildCasualPrompt(message, requester, nil), casualSystemPrompt)
}

// buildSuggestionPrompt 构建建议提示
func buildSuggestionPrompt(sctx *SuggestionContext, candidates []*models.Game, requester string, now time.Time, maxGames int) string {
	var games []string
	for i, game := range candidates {
		if i >= maxGames {
			games = append(games, fmt.Sprintf("(and %d more)", len(candidates)-maxGames))
			break
		}
		entry := game.Name
		if game.Category != "" {
			entry += " (" + game.Category + ")"
		}
		games = append(games, entry)
	}

	var recent []string
	for i, play := range sctx.RecentPlays {
		if i >= maxPromptPlays {
			break
		}
		recent = append(recent, fmt.Sprintf("%s (%s)", play.Game.Name, recencyHint(play.PlayedAt, now)))
	}
	recentStr := "nothing recently"
	if len(recent) > 0 {
		recentStr = strings.Join(recent, ", ")
	}

	who := requester
	if who == "" {
		who = "someone"
	}

	return fmt.Sprintf(`%s asks what to play.

%d people online
games available: %s
recently played: %s

pick 1-2 games from the available list. be super casual. under 150 chars.`,
		who, sctx.PlayerCount, strings.Join(games, ", "), recentStr)
}

// buildCasualPrompt 构建闲聊提示
func buildCasualPrompt(message, requester string, window []Turn) string {
	var b strings.Builder

	if len(window) > 0 {
		b.WriteString("recent messages (use only if directly relevant):\n")
		for _, turn := range window {
			fmt.Fprintf(&b, "%s: %s\n", turn.Username, turn.Text)
		}
		b.WriteString("\n")
	}

	who := requester
	if who == "" {
		who = "someone"
	}
	fmt.Fprintf(&b, "%s says: %s", who, message)

	return b.String()
}

// recencyHint 把游玩时间转成口语化的相对描述
func recencyHint(playedAt, now time.Time) string {
	days := int(now.Sub(playedAt).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
