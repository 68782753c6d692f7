package repository

import (
	"fmt"

	"gorm.io/gorm"

	"thucydides/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// CreateWithCitations commits an assistant message and its citations in one
// transaction, so a half-written turn can never be observed.
func (r *MessageRepository) CreateWithCitations(message *model.Message, citations []model.Citation) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		if len(citations) == 0 {
			return nil
		}
		for i := range citations {
			citations[i].MessageID = message.ID
		}
		return tx.Create(&citations).Error
	})
	if err != nil {
		return fmt.Errorf("create message with citations failed: %w", err)
	}
	return nil
}

// ListRecentBySessionID returns the newest limit messages of a session in
// chronological order. The window slides forward with the conversation, so a
// long session always yields its most recent exchanges.
func (r *MessageRepository) ListRecentBySessionID(sessionID uint, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var messages []model.Message
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Preload("Citations").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
