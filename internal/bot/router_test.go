package bot

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/game-buddy/internal/models"
	"github.com/wfunc/game-buddy/internal/repository"
	"gorm.io/gorm"
)

type RouterTestSuite struct {
	suite.Suite
	db             *gorm.DB
	gameRepo       repository.GameRepository
	playRepo       repository.PlayRepository
	suggestionRepo repository.SuggestionRepository
	fake           *fakeTextGenerator
	router         *Router
	ctx            context.Context
}

func (suite *RouterTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.gameRepo = repository.NewGameRepository(suite.db)
	suite.playRepo = repository.NewPlayRepository(suite.db)
	suite.suggestionRepo = repository.NewSuggestionRepository(suite.db)
	suite.fake = &fakeTextGenerator{}
	suite.ctx = context.Background()

	conversation := NewConversationStore(5)
	suite.router = NewRouter(RouterOptions{
		Conversation:   conversation,
		Limiter:        NewRateLimiter(false, 5*time.Second),
		Builder:        NewContextBuilder(suite.gameRepo, suite.playRepo, conversation, 7, 4),
		Filter:         NewSuggestionFilter(48, rand.New(rand.NewSource(1))),
		Generator:      NewGenerator(suite.fake, 0),
		Polisher:       NewPolisher(300, 200),
		GameRepo:       suite.gameRepo,
		SuggestionRepo: suite.suggestionRepo,
		Rng:            rand.New(rand.NewSource(1)),
	})
}

func (suite *RouterTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

func (suite *RouterTestSuite) addGame(name string, minPlayers, maxPlayers int) *models.Game {
	game := &models.Game{Name: name, MinPlayers: minPlayers, MaxPlayers: maxPlayers}
	require.NoError(suite.T(), suite.gameRepo.Create(suite.ctx, game))
	return game
}

func (suite *RouterTestSuite) mention(text string) Inbound {
	return Inbound{
		ChannelID:   "ch1",
		UserID:      "u1",
		Username:    "alice",
		Text:        text,
		MentionsBot: true,
	}
}

func (suite *RouterTestSuite) recordedSuggestions() []*models.Suggestion {
	suggestions, err := suite.suggestionRepo.RecentSince(suite.ctx,
		time.Now().Add(-time.Hour), repository.NewPagination(1, 50))
	require.NoError(suite.T(), err)
	return suggestions
}

func (suite *RouterTestSuite) TestIgnoresWithoutMention() {
	suite.addGame("Chess", 2, 2)

	msg := suite.mention("what should we play")
	msg.MentionsBot = false

	reply := suite.router.Handle(suite.ctx, msg)
	assert.Empty(suite.T(), reply)
	assert.Equal(suite.T(), 0, suite.fake.calls)
}

func (suite *RouterTestSuite) TestNonMentionStillFeedsWindow() {
	msg := suite.mention("that raid was rough")
	msg.MentionsBot = false
	suite.router.Handle(suite.ctx, msg)

	suite.fake.replies = []string{"yeah it was"}
	suite.router.Handle(suite.ctx, suite.mention("you saw that mitch?"))

	// 闲聊提示包含此前未提及机器人的消息
	require.Equal(suite.T(), 1, suite.fake.calls)
	assert.Contains(suite.T(), suite.fake.prompts[0], "that raid was rough")
}

func (suite *RouterTestSuite) TestRateLimited() {
	conversation := NewConversationStore(5)
	limited := NewRouter(RouterOptions{
		Conversation:   conversation,
		Limiter:        NewRateLimiter(true, 5*time.Second),
		Builder:        NewContextBuilder(suite.gameRepo, suite.playRepo, conversation, 7, 4),
		Filter:         NewSuggestionFilter(48, rand.New(rand.NewSource(1))),
		Generator:      NewGenerator(suite.fake, 0),
		Polisher:       NewPolisher(300, 200),
		GameRepo:       suite.gameRepo,
		SuggestionRepo: suite.suggestionRepo,
	})
	suite.addGame("Chess", 2, 4)

	first := limited.Handle(suite.ctx, suite.mention("what should we play"))
	second := limited.Handle(suite.ctx, suite.mention("what should we play"))

	assert.NotEqual(suite.T(), "whoa slow down a sec!", first)
	assert.Equal(suite.T(), "whoa slow down a sec!", second)
	// 被限流的消息不触发生成
	assert.Equal(suite.T(), 1, suite.fake.calls)
}

func (suite *RouterTestSuite) TestEmptyLibrary() {
	reply := suite.router.Handle(suite.ctx, suite.mention("what should we play"))

	assert.Equal(suite.T(), emptyLibraryText, reply)
	assert.Equal(suite.T(), 0, suite.fake.calls)
}

func (suite *RouterTestSuite) TestSuggestionHappyPath() {
	suite.addGame("Codenames", 2, 8)
	suite.addGame("Chess", 2, 2)
	suite.fake.replies = []string{"how about Codenames?"}

	reply := suite.router.Handle(suite.ctx, suite.mention("what should we play, 4 of us"))

	assert.Equal(suite.T(), "how about Codenames?", reply)
	require.Equal(suite.T(), 1, suite.fake.calls)
	// 消息里显式提到的人数进入提示
	assert.Contains(suite.T(), suite.fake.prompts[0], "4 people online")
	assert.NotContains(suite.T(), suite.fake.prompts[0], "Chess")
}

func (suite *RouterTestSuite) TestSuggestionRecordedWithGame() {
	game := suite.addGame("Codenames", 2, 8)
	suite.fake.replies = []string{"how about Codenames?"}

	suite.router.Handle(suite.ctx, suite.mention("suggest a game for 4 of us"))

	suggestions := suite.recordedSuggestions()
	require.Len(suite.T(), suggestions, 1)
	require.NotNil(suite.T(), suggestions[0].GameID)
	assert.Equal(suite.T(), game.ID, *suggestions[0].GameID)
	assert.Equal(suite.T(), float64(4), suggestions[0].Context["player_count"])
	assert.Equal(suite.T(), "alice", suggestions[0].Context["requester"])
}

func (suite *RouterTestSuite) TestSuggestionRecordedWithoutGameMatch() {
	suite.addGame("Codenames", 2, 8)
	suite.fake.replies = []string{"honestly anything works tonight"}

	suite.router.Handle(suite.ctx, suite.mention("suggest a game"))

	suggestions := suite.recordedSuggestions()
	require.Len(suite.T(), suggestions, 1)
	// 回复没点名任何候选时记一条无游戏引用的建议
	assert.Nil(suite.T(), suggestions[0].GameID)
}

func (suite *RouterTestSuite) TestNoGamesForPlayerCount() {
	suite.addGame("Chess", 2, 2)
	suite.addGame("Codenames", 4, 8)

	reply := suite.router.Handle(suite.ctx, suite.mention("what should we play, 9 of us"))

	assert.Contains(suite.T(), reply, "no games for exactly 9 players")
	assert.Contains(suite.T(), reply, "4-8")
	assert.Equal(suite.T(), 0, suite.fake.calls)
}

func (suite *RouterTestSuite) TestGenerationUnavailableFallsBack() {
	suite.addGame("Codenames", 2, 8)
	suite.fake.failures = 5

	reply := suite.router.Handle(suite.ctx, suite.mention("what should we play"))

	// 确定性降级回复必须点名某个候选
	assert.Contains(suite.T(), reply, "Codenames")
	assert.NotEmpty(suite.T(), reply)
}

func (suite *RouterTestSuite) TestCasualPath() {
	suite.fake.replies = []string{"Nah all good!"}

	reply := suite.router.Handle(suite.ctx, suite.mention("you good mitch?"))

	// 闲聊走严格后处理，首字符归一为小写
	assert.Equal(suite.T(), "nah all good!", reply)
}

func (suite *RouterTestSuite) TestCasualUnavailable() {
	suite.fake.failures = 5

	reply := suite.router.Handle(suite.ctx, suite.mention("hey mitch"))
	assert.Equal(suite.T(), casualFallbackText, reply)
}

func (suite *RouterTestSuite) TestCooldownRelaxedStillReplies() {
	game := suite.addGame("Codenames", 2, 8)
	require.NoError(suite.T(), suite.playRepo.Record(suite.ctx, &models.PlayRecord{
		GameID:   game.ID,
		PlayedAt: time.Now().Add(-2 * time.Hour),
	}))
	suite.fake.replies = []string{"Codenames again I guess"}

	reply := suite.router.Handle(suite.ctx, suite.mention("what should we play"))

	assert.NotEmpty(suite.T(), reply)
	assert.NotEqual(suite.T(), emptyLibraryText, reply)

	suggestions := suite.recordedSuggestions()
	require.Len(suite.T(), suggestions, 1)
	assert.Equal(suite.T(), true, suggestions[0].Context["cooldown_relaxed"])
}

func (suite *RouterTestSuite) TestFailureIsolatedPerMessage() {
	suite.addGame("Codenames", 2, 8)
	suite.fake.failures = 1
	suite.fake.replies = []string{"how about Codenames?"}

	first := suite.router.Handle(suite.ctx, suite.mention("what should we play"))
	second := suite.router.Handle(suite.ctx, suite.mention("what should we play"))

	// 第一条降级，第二条正常生成
	assert.Contains(suite.T(), first, "Codenames")
	assert.Equal(suite.T(), "how about Codenames?", second)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestRouterDefaultRateLimitMessage(t *testing.T) {
	router := NewRouter(RouterOptions{})
	assert.Equal(t, "whoa slow down a sec!", router.rateLimitMsg)
}

func TestFallbackSuggestionConcurrent(t *testing.T) {
	router := NewRouter(RouterOptions{})
	candidates := []*models.Game{
		{Name: "Codenames"}, {Name: "Chess"}, {Name: "Valheim"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if text := router.fallbackSuggestion(candidates); text == "" {
					t.Error("fallbackSuggestion 返回空串")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNoMatchingGamesTextTruncatesRanges(t *testing.T) {
	db := repository.SetupTestDB()
	defer repository.CleanupTestDB(db)
	gameRepo := repository.NewGameRepository(db)
	ctx := context.Background()

	names := []string{"A", "B", "C", "D", "E"}
	for i, name := range names {
		require.NoError(t, gameRepo.Create(ctx, &models.Game{
			Name: name, MinPlayers: i + 1, MaxPlayers: i + 3,
		}))
	}

	router := NewRouter(RouterOptions{GameRepo: gameRepo})
	text := router.noMatchingGamesText(ctx, 5)

	// 最多列三个区间
	assert.LessOrEqual(t, strings.Count(text, "-"), 3)
}
