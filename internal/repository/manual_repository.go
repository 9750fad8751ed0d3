package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kbagent/internal/model"
)

type ManualRepository struct {
	db *gorm.DB
}

func NewManualRepository(db *gorm.DB) *ManualRepository {
	return &ManualRepository{db: db}
}

func (r *ManualRepository) Create(ctx context.Context, manual *model.Manual) error {
	if err := r.db.WithContext(ctx).Create(manual).Error; err != nil {
		return fmt.Errorf("create manual failed: %w", err)
	}
	return nil
}

func (r *ManualRepository) Save(ctx context.Context, manual *model.Manual) error {
	if err := r.db.WithContext(ctx).Save(manual).Error; err != nil {
		return fmt.Errorf("save manual failed: %w", err)
	}
	return nil
}

// GetManual returns the manual or nil when it does not exist. The name
// satisfies retrieval.ManualResolver.
func (r *ManualRepository) GetManual(ctx context.Context, id uint) (*model.Manual, error) {
	var manual model.Manual
	if err := r.db.WithContext(ctx).First(&manual, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get manual failed: %w", err)
	}
	return &manual, nil
}

func (r *ManualRepository) GetBySourceURL(ctx context.Context, sourceURL string) (*model.Manual, error) {
	var manual model.Manual
	if err := r.db.WithContext(ctx).Where("source_url = ?", sourceURL).First(&manual).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get manual by source url failed: %w", err)
	}
	return &manual, nil
}

func (r *ManualRepository) List(ctx context.Context) ([]model.Manual, error) {
	var list []model.Manual
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list manuals failed: %w", err)
	}
	return list, nil
}

// ListIDs returns all manual ids in insertion order, for batch reindexing.
func (r *ManualRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.Manual{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list manual ids failed: %w", err)
	}
	return ids, nil
}

func (r *ManualRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Manual{}, id).Error; err != nil {
		return fmt.Errorf("delete manual failed: %w", err)
	}
	return nil
}
