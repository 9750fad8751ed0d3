package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kbagent/internal/model"
)

// ConversationRepository persists conversations and their append-only turn
// logs. It implements memory.TurnLog.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) FindBySession(ctx context.Context, sessionID string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find conversation failed: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("create conversation failed: %w", err)
	}
	return nil
}

func (r *ConversationRepository) AppendTurn(ctx context.Context, turn *model.Turn) error {
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("append turn failed: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns, most recent first.
func (r *ConversationRepository) RecentTurns(ctx context.Context, conversationID uint, limit int) ([]model.Turn, error) {
	var turns []model.Turn
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("list recent turns failed: %w", err)
	}
	return turns, nil
}

// ListTurns returns the full turn log in chronological order.
func (r *ConversationRepository) ListTurns(ctx context.Context, conversationID uint) ([]model.Turn, error) {
	var turns []model.Turn
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("list turns failed: %w", err)
	}
	return turns, nil
}
