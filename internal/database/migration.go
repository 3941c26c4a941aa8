package database

import (
	"fmt"

	"github.com/wfunc/game-buddy/internal/logger"
	"github.com/wfunc/game-buddy/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if db == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 定义需要迁移的模型
	migrationModels := []interface{}{
		&models.Game{},
		&models.PlayRecord{},
		&models.Suggestion{},
	}

	if err := db.AutoMigrate(migrationModels...); err != nil {
		logger.Error("数据库迁移失败", zap.Error(err))
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	logger.Info("数据库迁移完成", zap.Int("tables", len(migrationModels)))
	return nil
}
