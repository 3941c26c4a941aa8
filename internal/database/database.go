package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/game-buddy/internal/config"
	"github.com/wfunc/game-buddy/internal/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 慢查询阈值。建议流水线中单条SQL远快于生成调用，超过这个值就值得关注
const slowQueryThreshold = 200 * time.Millisecond

// 健康检查的ping超时，/health 每次请求都会走到这里
const pingTimeout = time.Second

var db *gorm.DB

// Init 打开数据库并配置连接池
// 单实例部署默认用sqlite单文件库，mysql/postgres 留给共享库的部署方式
func Init(cfg *config.DatabaseConfig) error {
	dialector, err := openDialector(cfg)
	if err != nil {
		return err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(logger.GetLogger(), parseLogLevel(cfg.LogLevel)),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		// 删除游戏时级联清理游玩记录依赖外键约束
		DisableForeignKeyConstraintWhenMigrating: false,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("获取数据库实例失败: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if isSQLite(cfg.Driver) {
		// sqlite的写锁是库级的，消息处理goroutine各自拿连接
		// 只会在锁上互相顶出 SQLITE_BUSY，收敛到单连接串行写入
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}

	db = gdb
	logger.Info("数据库连接成功",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open", maxOpen),
	)
	return nil
}

// openDialector 根据配置的驱动名构造方言
func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch {
	case isSQLite(cfg.Driver):
		return sqlite.Open(cfg.DSN), nil
	case cfg.Driver == "mysql":
		return mysql.Open(cfg.DSN), nil
	case cfg.Driver == "postgres" || cfg.Driver == "postgresql":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

func isSQLite(driver string) bool {
	return driver == "sqlite" || driver == "sqlite3"
}

// parseLogLevel 把配置的日志级别映射到gorm级别，未知值按info处理
func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Info
	}
}

// Close 关闭数据库连接
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB 获取数据库实例
func GetDB() *gorm.DB {
	return db
}

// IsConnected 带超时的连接探活，/health 依赖它区分 ok 与 degraded
func IsConnected() bool {
	if db == nil {
		return false
	}
	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}

// gormZapLogger 把gorm的日志接到zap上
type gormZapLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
}

func newGormLogger(log *zap.Logger, level gormlogger.LogLevel) *gormZapLogger {
	return &gormZapLogger{log: log, level: level}
}

// LogMode 返回指定级别的新实例，gorm的Session机制要求不可变
func (l *gormZapLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormZapLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormZapLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormZapLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

// Trace 记录SQL执行情况，慢查询和错误分别提级
func (l *gormZapLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && err != gorm.ErrRecordNotFound && l.level >= gormlogger.Error:
		l.log.Error("SQL执行错误", append(fields, zap.Error(err))...)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		l.log.Warn("SQL执行缓慢", fields...)
	case l.level >= gormlogger.Info:
		l.log.Debug("SQL执行", fields...)
	}
}
