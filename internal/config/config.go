package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Chat         ChatConfig         `mapstructure:"chat"`
	AI           AIConfig           `mapstructure:"ai"`
	Suggestion   SuggestionConfig   `mapstructure:"suggestion"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
	Security     SecurityConfig     `mapstructure:"security"`
}

// ServerConfig 管理API服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ChatConfig 聊天网关配置
type ChatConfig struct {
	GatewayURL     string        `mapstructure:"gateway_url"`
	Token          string        `mapstructure:"token"`
	BotName        string        `mapstructure:"bot_name"`
	MaxMessageSize int           `mapstructure:"max_message_size"` // 平台单条消息上限
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
}

// AIConfig 生成服务配置
type AIConfig struct {
	Host        string        `mapstructure:"host"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// SuggestionConfig 建议引擎配置
type SuggestionConfig struct {
	CooldownHours         int `mapstructure:"cooldown_hours"`
	RecentPlaysWindowDays int `mapstructure:"recent_plays_window_days"`
	MaxSuggestions        int `mapstructure:"max_suggestions"`
	DefaultPlayerCount    int `mapstructure:"default_player_count"`
}

// ConversationConfig 会话上下文配置
type ConversationConfig struct {
	ContextMessages     int `mapstructure:"context_messages"`
	CasualMaxLength     int `mapstructure:"casual_max_length"`
	SuggestionMaxLength int `mapstructure:"suggestion_max_length"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CooldownSeconds int    `mapstructure:"cooldown_seconds"`
	Message         string `mapstructure:"message"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	Output string        `mapstructure:"output"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SecurityConfig 管理API安全配置
type SecurityConfig struct {
	JWT   JWTConfig   `mapstructure:"jwt"`
	Admin AdminConfig `mapstructure:"admin"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// AdminConfig 管理员账号配置
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // argon2id哈希
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("GAME_BUDDY")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		cfg = &Config{}
		if err = v.Unmarshal(cfg); err != nil {
			return
		}

		// 启动时校验一次
		err = cfg.Validate()
	})

	return err
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 数据库默认配置
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/game-buddy.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "info")
	v.SetDefault("database.auto_migrate", true)

	// 聊天网关默认配置
	v.SetDefault("chat.gateway_url", "ws://localhost:8090/gateway")
	v.SetDefault("chat.bot_name", "mitch")
	v.SetDefault("chat.max_message_size", 2000)
	v.SetDefault("chat.ping_interval", "30s")
	v.SetDefault("chat.write_timeout", "10s")
	v.SetDefault("chat.reconnect_wait", "5s")

	// 生成服务默认配置
	v.SetDefault("ai.host", "http://localhost:11434")
	v.SetDefault("ai.model", "phi3:mini")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.temperature", 0.8)
	v.SetDefault("ai.max_tokens", 300)

	// 建议引擎默认配置
	v.SetDefault("suggestion.cooldown_hours", 48)
	v.SetDefault("suggestion.recent_plays_window_days", 7)
	v.SetDefault("suggestion.max_suggestions", 3)
	v.SetDefault("suggestion.default_player_count", 4)

	// 会话上下文默认配置
	v.SetDefault("conversation.context_messages", 5)
	v.SetDefault("conversation.casual_max_length", 200)
	v.SetDefault("conversation.suggestion_max_length", 300)

	// 限流默认配置（默认关闭）
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.cooldown_seconds", 5)
	v.SetDefault("rate_limit.message", "whoa slow down a sec!")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "game-buddy.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)

	// 安全默认配置
	v.SetDefault("security.jwt.expire_hours", 24)
	v.SetDefault("security.admin.username", "admin")
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.Suggestion.CooldownHours < 0 {
		return fmt.Errorf("suggestion.cooldown_hours 不能为负数: %d", c.Suggestion.CooldownHours)
	}
	if c.Suggestion.RecentPlaysWindowDays <= 0 {
		return fmt.Errorf("suggestion.recent_plays_window_days 必须大于0: %d", c.Suggestion.RecentPlaysWindowDays)
	}
	if c.Suggestion.MaxSuggestions <= 0 {
		return fmt.Errorf("suggestion.max_suggestions 必须大于0: %d", c.Suggestion.MaxSuggestions)
	}
	if c.Conversation.ContextMessages <= 0 {
		return fmt.Errorf("conversation.context_messages 必须大于0: %d", c.Conversation.ContextMessages)
	}
	if c.Conversation.CasualMaxLength <= 0 || c.Conversation.SuggestionMaxLength <= 0 {
		return fmt.Errorf("会话长度上限必须大于0")
	}
	if c.Conversation.CasualMaxLength > c.Conversation.SuggestionMaxLength {
		return fmt.Errorf("conversation.casual_max_length (%d) 不能大于 suggestion_max_length (%d)",
			c.Conversation.CasualMaxLength, c.Conversation.SuggestionMaxLength)
	}
	if c.RateLimit.Enabled && c.RateLimit.CooldownSeconds <= 0 {
		return fmt.Errorf("rate_limit.cooldown_seconds 必须大于0: %d", c.RateLimit.CooldownSeconds)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout 必须大于0: %s", c.AI.Timeout)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature 超出范围 [0,2]: %f", c.AI.Temperature)
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("ai.max_tokens 必须大于0: %d", c.AI.MaxTokens)
	}
	if c.Chat.MaxMessageSize <= 0 {
		return fmt.Errorf("chat.max_message_size 必须大于0: %d", c.Chat.MaxMessageSize)
	}
	return nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("配置重载校验失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}

		fmt.Println("配置已重新加载")
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool 获取布尔配置
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}

// IsSet 检查配置项是否存在
func IsSet(key string) bool {
	return v.IsSet(key)
}
