package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wfunc/game-buddy/internal/ai"
	"github.com/wfunc/game-buddy/internal/api"
	"github.com/wfunc/game-buddy/internal/bot"
	"github.com/wfunc/game-buddy/internal/chat"
	"github.com/wfunc/game-buddy/internal/config"
	"github.com/wfunc/game-buddy/internal/database"
	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/logger"
	"github.com/wfunc/game-buddy/internal/repository"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务组件
	aiClient   *ai.Client
	botRouter  *bot.Router
	gateway    *chat.Gateway
	httpServer *http.Server

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("game-buddy %s (build: %s, commit: %s)\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		logger:     logger.GetLogger(),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动游戏伙伴服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}

	s.initBot()

	if err := s.startChatGateway(); err != nil {
		return err
	}

	s.startHTTPServer()

	// 监听配置变化；结构性参数需要重启才生效
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置文件已更新",
			zap.String("log_level", newCfg.Log.Level))
	})

	s.logger.Info("服务启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
		zap.String("ai", s.cfg.AI.Host),
		zap.String("gateway", s.cfg.Chat.GatewayURL),
	)

	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// initBot 装配消息处理流水线
func (s *Server) initBot() {
	db := database.GetDB()
	gameRepo := repository.NewGameRepository(db)
	playRepo := repository.NewPlayRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)

	s.aiClient = ai.NewClient(&s.cfg.AI)

	conversation := bot.NewConversationStore(s.cfg.Conversation.ContextMessages)

	s.botRouter = bot.NewRouter(bot.RouterOptions{
		Conversation: conversation,
		Limiter: bot.NewRateLimiter(s.cfg.RateLimit.Enabled,
			time.Duration(s.cfg.RateLimit.CooldownSeconds)*time.Second),
		Builder: bot.NewContextBuilder(gameRepo, playRepo, conversation,
			s.cfg.Suggestion.RecentPlaysWindowDays,
			s.cfg.Suggestion.DefaultPlayerCount),
		Filter: bot.NewSuggestionFilter(s.cfg.Suggestion.CooldownHours,
			rand.New(rand.NewSource(time.Now().UnixNano()))),
		Generator: bot.NewGenerator(s.aiClient, s.cfg.Suggestion.MaxSuggestions),
		Polisher: bot.NewPolisher(s.cfg.Conversation.SuggestionMaxLength,
			s.cfg.Conversation.CasualMaxLength),
		GameRepo:       gameRepo,
		SuggestionRepo: suggestionRepo,
		RateLimitMsg:   s.cfg.RateLimit.Message,
	})
}

// startChatGateway 连接聊天平台并启动消息循环
func (s *Server) startChatGateway() error {
	s.gateway = chat.NewGateway(s.cfg.Chat.GatewayURL, s.cfg.Chat.MaxMessageSize)
	if err := s.gateway.Start(); err != nil {
		return errors.Wrap(err, errors.ErrGatewayConnect, "连接聊天网关失败")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.eventLoop()
	}()

	return nil
}

// eventLoop 消费入站消息，逐条处理并发回回复
// 处理在独立goroutine里进行，一条消息的慢生成不会阻塞其他消息
func (s *Server) eventLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-s.gateway.Events():
			if !ok {
				s.logger.Warn("网关事件通道已关闭")
				return
			}

			s.wg.Add(1)
			go func(msg chat.InboundMessage) {
				defer s.wg.Done()
				s.handleMessage(msg)
			}(msg)
		}
	}
}

// handleMessage 处理单条入站消息
func (s *Server) handleMessage(msg chat.InboundMessage) {
	reply := s.botRouter.Handle(s.ctx, bot.Inbound{
		ChannelID:   msg.ChannelID,
		UserID:      msg.UserID,
		Username:    msg.Username,
		Text:        msg.Content,
		MentionsBot: msg.MentionsBot,
	})
	if reply == "" {
		return
	}

	if err := s.gateway.Send(msg.ChannelID, reply); err != nil {
		s.logger.Error("发送回复失败",
			zap.String("channel", msg.ChannelID),
			zap.Error(err))
	}
}

// startHTTPServer 启动管理API
func (s *Server) startHTTPServer() {
	router := api.NewRouter(database.GetDB(), s.cfg, s.aiClient, s.logger)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("管理API已启动", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务器异常退出", zap.Error(err))
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))

	close(s.shutdownCh)
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 先停HTTP，再断网关，最后等在途消息处理完
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务器关闭异常", zap.Error(err))
		}
	}

	if s.gateway != nil {
		s.gateway.Close()
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
	}

	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	return nil
}
