package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// ChatRepository stores chat transcripts.
type ChatRepository interface {
	SaveMessage(ctx context.Context, message *models.ChatMessage) error
	// GetMessagesBySession returns the transcript in send order.
	GetMessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
}

type chatRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewChatRepository(db *gorm.DB, log *zap.Logger) ChatRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &chatRepository{db: db, log: log.Named("ChatRepository")}
}

func (r *chatRepository) SaveMessage(ctx context.Context, message *models.ChatMessage) error {
	if message == nil || message.SessionID == "" {
		return errors.New("chat message session cannot be empty")
	}
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	r.log.Debug("saved chat message", zap.Uint("id", message.ID), zap.String("role", message.Role), zap.Int("len", len(message.Content)))
	return nil
}

func (r *chatRepository) GetMessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	msgs := []models.ChatMessage{}
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("timestamp asc, id asc").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return msgs, nil
}
