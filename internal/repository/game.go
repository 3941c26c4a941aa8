package repository

import (
	"context"
	stderrors "errors"

	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/models"
	"gorm.io/gorm"
)

// GameRepository 游戏库仓储接口
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	Update(ctx context.Context, game *models.Game) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Game, error)
	FindByName(ctx context.Context, name string) (*models.Game, error)
	FindForPlayerCount(ctx context.Context, playerCount int) ([]*models.Game, error)
	GetAll(ctx context.Context) ([]*models.Game, error)
	Count(ctx context.Context) (int64, error)
}

// gameRepo 游戏库仓储实现
type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建游戏库仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建游戏，入库前校验人数区间
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	if err := validatePlayerRange(game); err != nil {
		return err
	}

	// 名称大小写不敏感唯一
	var count int64
	r.db.WithContext(ctx).Model(&models.Game{}).
		Where("LOWER(name) = LOWER(?)", game.Name).
		Count(&count)
	if count > 0 {
		return errors.Newf(errors.ErrGameExists, "name=%s", game.Name)
	}

	if err := r.db.WithContext(ctx).Create(game).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	return nil
}

// Update 更新游戏
func (r *gameRepo) Update(ctx context.Context, game *models.Game) error {
	if err := validatePlayerRange(game); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(game).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate)
	}
	return nil
}

// Delete 删除游戏
// 引用策略由存储层负责：游玩记录级联删除，建议记录的游戏引用置空
func (r *gameRepo) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ?", id).Delete(&models.PlayRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Suggestion{}).
			Where("game_id = ?", id).
			Update("game_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Game{}, id).Error
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete)
	}
	return nil
}

// FindByID 根据ID查找游戏
func (r *gameRepo) FindByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).First(&game, id).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrGameNotFound, "id=%d", id)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &game, nil
}

// FindByName 根据名称查找游戏（大小写不敏感）
func (r *gameRepo) FindByName(ctx context.Context, name string) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&game).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrGameNotFound, "name=%s", name)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &game, nil
}

// FindForPlayerCount 查找支持给定人数的游戏
func (r *gameRepo) FindForPlayerCount(ctx context.Context, playerCount int) ([]*models.Game, error) {
	var games []*models.Game
	err := r.db.WithContext(ctx).
		Where("min_players <= ? AND max_players >= ?", playerCount, playerCount).
		Order("name").
		Find(&games).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return games, nil
}

// GetAll 获取所有游戏
func (r *gameRepo) GetAll(ctx context.Context) ([]*models.Game, error) {
	var games []*models.Game
	err := r.db.WithContext(ctx).Order("name").Find(&games).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return games, nil
}

// Count 统计游戏总数
func (r *gameRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Game{}).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return count, nil
}

// validatePlayerRange 校验人数区间
func validatePlayerRange(game *models.Game) error {
	if game.MinPlayers < 1 {
		return errors.Newf(errors.ErrInvalidPlayerRange, "min_players=%d", game.MinPlayers)
	}
	if game.MinPlayers > game.MaxPlayers {
		return errors.Newf(errors.ErrInvalidPlayerRange, "min=%d max=%d", game.MinPlayers, game.MaxPlayers)
	}
	return nil
}
