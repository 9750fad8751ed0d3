package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kbagent/internal/model"
)

type AnswerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (r *AnswerRepository) Create(ctx context.Context, answer *model.Answer) error {
	if err := r.db.WithContext(ctx).Create(answer).Error; err != nil {
		return fmt.Errorf("create answer failed: %w", err)
	}
	return nil
}

func (r *AnswerRepository) GetByManualID(ctx context.Context, manualID uint) (*model.Answer, error) {
	var answer model.Answer
	if err := r.db.WithContext(ctx).Where("manual_id = ?", manualID).First(&answer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get answer failed: %w", err)
	}
	return &answer, nil
}

// ListCandidates returns all answers ordered by id, so a scan sees them in
// insertion order and similarity ties break deterministically.
func (r *AnswerRepository) ListCandidates(ctx context.Context) ([]model.Answer, error) {
	var answers []model.Answer
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("list answers failed: %w", err)
	}
	return answers, nil
}

// UpdateContentAndEmbedding replaces text and embedding in one UPDATE, so a
// concurrent scan sees either the old complete embedding or the new one,
// never an intermediate state.
func (r *AnswerRepository) UpdateContentAndEmbedding(ctx context.Context, answer *model.Answer) error {
	err := r.db.WithContext(ctx).Model(&model.Answer{}).
		Where("id = ?", answer.ID).
		Updates(map[string]interface{}{
			"content":   answer.Content,
			"embedding": answer.Embedding,
		}).Error
	if err != nil {
		return fmt.Errorf("update answer failed: %w", err)
	}
	return nil
}

func (r *AnswerRepository) DeleteByManualID(ctx context.Context, manualID uint) error {
	if err := r.db.WithContext(ctx).Where("manual_id = ?", manualID).Delete(&model.Answer{}).Error; err != nil {
		return fmt.Errorf("delete answers by manual failed: %w", err)
	}
	return nil
}
