package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/wfunc/game-buddy/internal/errors"
	"github.com/wfunc/game-buddy/internal/models"
	"gorm.io/gorm"
)

// SuggestionRepository 建议记录仓储接口
// 上下文快照写入后不变，Accepted 是唯一可更新字段
type SuggestionRepository interface {
	BaseRepository
	Record(ctx context.Context, suggestion *models.Suggestion) error
	FindByID(ctx context.Context, id uint) (*models.Suggestion, error)
	MarkAccepted(ctx context.Context, id uint) error
	RecentSince(ctx context.Context, since time.Time, pagination *Pagination) ([]*models.Suggestion, error)
}

// suggestionRepo 建议记录仓储实现
type suggestionRepo struct {
	*BaseRepo
}

// NewSuggestionRepository 创建建议记录仓储
func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Record 追加建议记录
func (r *suggestionRepo) Record(ctx context.Context, suggestion *models.Suggestion) error {
	if suggestion.SuggestedAt.IsZero() {
		suggestion.SuggestedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(suggestion).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert)
	}
	return nil
}

// FindByID 根据ID查找建议记录
func (r *suggestionRepo) FindByID(ctx context.Context, id uint) (*models.Suggestion, error) {
	var suggestion models.Suggestion
	err := r.db.WithContext(ctx).Preload("Game").First(&suggestion, id).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "suggestion id=%d", id)
		}
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &suggestion, nil
}

// MarkAccepted 标记建议被采纳，只更新Accepted字段
func (r *suggestionRepo) MarkAccepted(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Suggestion{}).
		Where("id = ?", id).
		Update("accepted", true)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return errors.Newf(errors.ErrNotFound, "suggestion id=%d", id)
	}
	return nil
}

// RecentSince 查询某时间之后的建议记录，最新在前
func (r *suggestionRepo) RecentSince(ctx context.Context, since time.Time, pagination *Pagination) ([]*models.Suggestion, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Suggestion{}).
		Where("suggested_at >= ?", since)

	if pagination != nil {
		query.Count(&pagination.Total)
		query = query.Offset(pagination.Offset()).Limit(pagination.PageSize)
	}

	var suggestions []*models.Suggestion
	err := query.Preload("Game").Order("suggested_at DESC").Find(&suggestions).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return suggestions, nil
}
