package repository

import (
	"context"
	"time"

	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/models"
	"gorm.io/gorm"
)

// PlayRepository 游玩记录仓储接口
// 记录只追加，不提供更新删除
type PlayRepository interface {
	BaseRepository
	Record(ctx context.Context, record *models.PlayRecord) error
	RecentSince(ctx context.Context, since time.Time) ([]*models.PlayRecord, error)
	LastPlayedAt(ctx context.Context, gameID uint) (*time.Time, error)
}

// playRepo 游玩记录仓储实现
type playRepo struct {
	*BaseRepo
}

// NewPlayRepository 创建游玩记录仓储
func NewPlayRepository(db *gorm.DB) PlayRepository {
	return &playRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Record 追加游玩记录
func (r *playRepo) Record(ctx context.Context, record *models.PlayRecord) error {
	if record.PlayedAt.IsZero() {
		record.PlayedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	return nil
}

// RecentSince 查询某时间之后的游玩记录，最新在前
func (r *playRepo) RecentSince(ctx context.Context, since time.Time) ([]*models.PlayRecord, error) {
	var records []*models.PlayRecord
	err := r.db.WithContext(ctx).
		Preload("Game").
		Where("played_at >= ?", since).
		Order("played_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return records, nil
}

// LastPlayedAt 查询游戏最近一次游玩时间，从未游玩返回nil
func (r *playRepo) LastPlayedAt(ctx context.Context, gameID uint) (*time.Time, error) {
	var record models.PlayRecord
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("played_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &record.PlayedAt, nil
}
