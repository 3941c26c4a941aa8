package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/game-buddy/internal/ai"
	"github.com/wfunc/game-buddy/internal/models"
)

// fakeTextGenerator 可编排的生成服务替身
type fakeTextGenerator struct {
	calls    int
	prompts  []string
	systems  []string
	replies  []string
	failures int // 前 N 次调用返回不可用
}

func (f *fakeTextGenerator) Generate(ctx context.Context, prompt, system string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.systems = append(f.systems, system)
	if f.calls <= f.failures {
		return "", ai.ErrUnavailable
	}
	reply := "ok"
	if len(f.replies) > 0 {
		reply = f.replies[(f.calls-1)%len(f.replies)]
	}
	return reply, nil
}

func suggestionTestContext(playerCount int, plays []*models.PlayRecord) *SuggestionContext {
	return &SuggestionContext{
		PlayerCount: playerCount,
		RecentPlays: plays,
	}
}

func TestGenerateSuggestionPromptContents(t *testing.T) {
	fake := &fakeTextGenerator{replies: []string{"how about Codenames?"}}
	gen := NewGenerator(fake, 0)

	now := time.Now()
	game := &models.Game{Name: "Valheim", Category: "survival"}
	game.ID = 7
	plays := []*models.PlayRecord{
		{GameID: 7, PlayedAt: now.Add(-24 * time.Hour), Game: *game},
	}
	candidates := []*models.Game{
		{Name: "Codenames", Category: "party"},
		{Name: "Chess"},
	}

	reply, err := gen.GenerateSuggestion(context.Background(), suggestionTestContext(4, plays), candidates, "alice", now)
	require.NoError(t, err)
	assert.Equal(t, "how about Codenames?", reply)

	require.Equal(t, 1, fake.calls)
	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "alice")
	assert.Contains(t, prompt, "4 people online")
	assert.Contains(t, prompt, "Codenames (party)")
	assert.Contains(t, prompt, "Chess")
	assert.Contains(t, prompt, "Valheim (yesterday)")
	assert.Equal(t, suggestionSystemPrompt, fake.systems[0])
}

func TestGenerateSuggestionCapsPromptGames(t *testing.T) {
	fake := &fakeTextGenerator{}
	gen := NewGenerator(fake, 0)

	var candidates []*models.Game
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for _, name := range names {
		candidates = append(candidates, &models.Game{Name: name})
	}

	_, err := gen.GenerateSuggestion(context.Background(), suggestionTestContext(4, nil), candidates, "bob", time.Now())
	require.NoError(t, err)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "(and 2 more)")
	assert.NotContains(t, prompt, "G,")
}

func TestGenerateSuggestionConfiguredCap(t *testing.T) {
	fake := &fakeTextGenerator{}
	gen := NewGenerator(fake, 2)

	candidates := []*models.Game{
		{Name: "Codenames"},
		{Name: "Chess"},
		{Name: "Valheim"},
		{Name: "Terraria"},
	}

	_, err := gen.GenerateSuggestion(context.Background(), suggestionTestContext(4, nil), candidates, "bob", time.Now())
	require.NoError(t, err)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "Codenames")
	assert.Contains(t, prompt, "Chess")
	assert.Contains(t, prompt, "(and 2 more)")
	assert.NotContains(t, prompt, "Valheim")
}

func TestGenerateSuggestionNoRecentPlays(t *testing.T) {
	fake := &fakeTextGenerator{}
	gen := NewGenerator(fake, 0)

	_, err := gen.GenerateSuggestion(context.Background(), suggestionTestContext(3, nil),
		[]*models.Game{{Name: "Chess"}}, "", time.Now())
	require.NoError(t, err)

	assert.Contains(t, fake.prompts[0], "nothing recently")
	assert.Contains(t, fake.prompts[0], "someone asks")
}

func TestGenerateSuggestionNoRetry(t *testing.T) {
	fake := &fakeTextGenerator{failures: 1}
	gen := NewGenerator(fake, 0)

	_, err := gen.GenerateSuggestion(context.Background(), suggestionTestContext(4, nil),
		[]*models.Game{{Name: "Chess"}}, "alice", time.Now())
	require.Error(t, err)
	// 建议路径单次调用，失败直接上抛
	assert.Equal(t, 1, fake.calls)
}

func TestGenerateCasualIncludesWindow(t *testing.T) {
	fake := &fakeTextGenerator{replies: []string{"nah all good"}}
	gen := NewGenerator(fake, 0)

	window := []Turn{
		{Username: "bob", Text: "that raid was rough"},
		{Username: "carol", Text: "lol yeah"},
	}
	reply, err := gen.GenerateCasual(context.Background(), "you good mitch?", "alice", window)
	require.NoError(t, err)
	assert.Equal(t, "nah all good", reply)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "bob: that raid was rough")
	assert.Contains(t, prompt, "carol: lol yeah")
	assert.Contains(t, prompt, "alice says: you good mitch?")
	assert.Equal(t, casualSystemPrompt, fake.systems[0])
}

func TestGenerateCasualRetriesWithoutWindow(t *testing.T) {
	fake := &fakeTextGenerator{failures: 1, replies: []string{"hey"}}
	gen := NewGenerator(fake, 0)

	window := []Turn{{Username: "bob", Text: "context line"}}
	reply, err := gen.GenerateCasual(context.Background(), "hi", "alice", window)
	require.NoError(t, err)
	assert.Equal(t, "hey", reply)

	// 第二次调用去掉了会话窗口
	require.Equal(t, 2, fake.calls)
	assert.Contains(t, fake.prompts[0], "context line")
	assert.NotContains(t, fake.prompts[1], "context line")
}

func TestGenerateCasualNoRetryWithoutWindow(t *testing.T) {
	fake := &fakeTextGenerator{failures: 5}
	gen := NewGenerator(fake, 0)

	_, err := gen.GenerateCasual(context.Background(), "hi", "alice", nil)
	require.Error(t, err)
	// 没有可精简的上下文时不重试
	assert.Equal(t, 1, fake.calls)
}

func TestGenerateCasualAtMostTwoCalls(t *testing.T) {
	fake := &fakeTextGenerator{failures: 5}
	gen := NewGenerator(fake, 0)

	_, err := gen.GenerateCasual(context.Background(), "hi", "alice", []Turn{{Text: "x"}})
	require.Error(t, err)
	assert.Equal(t, 2, fake.calls)
}

func TestRecencyHint(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "today", recencyHint(now.Add(-2*time.Hour), now))
	assert.Equal(t, "yesterday", recencyHint(now.Add(-30*time.Hour), now))
	assert.Equal(t, "3 days ago", recencyHint(now.Add(-3*24*time.Hour), now))
}
