package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kbagent/internal/model"
)

type ProcessedManualRepository struct {
	db *gorm.DB
}

func NewProcessedManualRepository(db *gorm.DB) *ProcessedManualRepository {
	return &ProcessedManualRepository{db: db}
}

func (r *ProcessedManualRepository) Create(ctx context.Context, pm *model.ProcessedManual) error {
	if err := r.db.WithContext(ctx).Create(pm).Error; err != nil {
		return fmt.Errorf("create processed manual failed: %w", err)
	}
	return nil
}

func (r *ProcessedManualRepository) GetByManualID(ctx context.Context, manualID uint) (*model.ProcessedManual, error) {
	var pm model.ProcessedManual
	if err := r.db.WithContext(ctx).Where("manual_id = ?", manualID).First(&pm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get processed manual failed: %w", err)
	}
	return &pm, nil
}

// ListCandidates returns all processed manuals ordered by id (insertion
// order, for deterministic tie-breaks).
func (r *ProcessedManualRepository) ListCandidates(ctx context.Context) ([]model.ProcessedManual, error) {
	var list []model.ProcessedManual
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list processed manuals failed: %w", err)
	}
	return list, nil
}

// UpdateContentAndEmbedding replaces the curated text and embedding in one
// UPDATE (atomic absent-to-complete swap for concurrent readers).
func (r *ProcessedManualRepository) UpdateContentAndEmbedding(ctx context.Context, pm *model.ProcessedManual) error {
	err := r.db.WithContext(ctx).Model(&model.ProcessedManual{}).
		Where("id = ?", pm.ID).
		Updates(map[string]interface{}{
			"title":        pm.Title,
			"source_url":   pm.SourceURL,
			"markdown":     pm.Markdown,
			"embedding":    pm.Embedding,
			"total_images": pm.TotalImages,
		}).Error
	if err != nil {
		return fmt.Errorf("update processed manual failed: %w", err)
	}
	return nil
}

func (r *ProcessedManualRepository) DeleteByManualID(ctx context.Context, manualID uint) error {
	pm, err := r.GetByManualID(ctx, manualID)
	if err != nil {
		return err
	}
	if pm == nil {
		return nil
	}
	if err := r.DeleteImages(ctx, pm.ID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(&model.ProcessedManual{}, pm.ID).Error; err != nil {
		return fmt.Errorf("delete processed manual failed: %w", err)
	}
	return nil
}

func (r *ProcessedManualRepository) ReplaceImages(ctx context.Context, processedManualID uint, images []model.ManualImage) error {
	if err := r.DeleteImages(ctx, processedManualID); err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}
	for i := range images {
		images[i].ProcessedManualID = processedManualID
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		return fmt.Errorf("create manual images failed: %w", err)
	}
	return nil
}

func (r *ProcessedManualRepository) ListImages(ctx context.Context, processedManualID uint) ([]model.ManualImage, error) {
	var images []model.ManualImage
	if err := r.db.WithContext(ctx).Where("processed_manual_id = ?", processedManualID).Order("position ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list manual images failed: %w", err)
	}
	return images, nil
}

func (r *ProcessedManualRepository) DeleteImages(ctx context.Context, processedManualID uint) error {
	if err := r.db.WithContext(ctx).Where("processed_manual_id = ?", processedManualID).Delete(&model.ManualImage{}).Error; err != nil {
		return fmt.Errorf("delete manual images failed: %w", err)
	}
	return nil
}
