package repository

import (
	"github.com/wfunc/game-buddy/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Game{},
		&models.PlayRecord{},
		&models.Suggestion{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
// 注意：清理顺序很重要，先清理有外键依赖的表
func CleanupTestDB(db *gorm.DB) {
	tables := []interface{}{
		&models.PlayRecord{},
		&models.Suggestion{},
		&models.Game{},
	}

	for _, table := range tables {
		db.Unscoped().Where("1 = 1").Delete(table)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}
}
