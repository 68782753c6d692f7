package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"thucydides/internal/model"
)

type DialogueSessionRepository struct {
	db *gorm.DB
}

func NewDialogueSessionRepository(db *gorm.DB) *DialogueSessionRepository {
	return &DialogueSessionRepository{db: db}
}

func (r *DialogueSessionRepository) Create(session *model.DialogueSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create dialogue session failed: %w", err)
	}
	return nil
}

// GetByIDAndUserID returns the session only if it belongs to one of the
// user's projects. Ownership is enforced here, not in handlers.
func (r *DialogueSessionRepository) GetByIDAndUserID(sessionID, userID uint) (*model.DialogueSession, error) {
	var session model.DialogueSession
	err := r.db.
		Joins("JOIN projects ON projects.id = dialogue_sessions.project_id").
		Where("dialogue_sessions.id = ? AND projects.user_id = ?", sessionID, userID).
		Preload("Figure").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dialogue session failed: %w", err)
	}
	return &session, nil
}

func (r *DialogueSessionRepository) ListByUserIDAndFigureID(userID, figureID uint) ([]model.DialogueSession, error) {
	var sessions []model.DialogueSession
	err := r.db.
		Joins("JOIN projects ON projects.id = dialogue_sessions.project_id").
		Where("projects.user_id = ? AND dialogue_sessions.figure_id = ?", userID, figureID).
		Order("dialogue_sessions.created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list dialogue sessions failed: %w", err)
	}
	return sessions, nil
}

// ListRecentByUserID returns the user's newest sessions, newest first, with
// figures preloaded. The caller deduplicates per figure.
func (r *DialogueSessionRepository) ListRecentByUserID(userID uint, limit int) ([]model.DialogueSession, error) {
	if limit <= 0 {
		limit = 50
	}
	var sessions []model.DialogueSession
	err := r.db.
		Joins("JOIN projects ON projects.id = dialogue_sessions.project_id").
		Where("projects.user_id = ?", userID).
		Order("dialogue_sessions.created_at DESC").
		Limit(limit).
		Preload("Figure").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list recent dialogue sessions failed: %w", err)
	}
	return sessions, nil
}
