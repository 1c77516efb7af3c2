package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// JournalRepository stores private journal entries.
type JournalRepository interface {
	Add(ctx context.Context, entry *models.JournalEntry) error
	// Delete removes the entry only when it belongs to userID and reports
	// whether a row was removed.
	Delete(ctx context.Context, userID, id string) (bool, error)
	// ListByUser returns entries ordered by date, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.JournalEntry, error)
}

type journalRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewJournalRepository(db *gorm.DB, log *zap.Logger) JournalRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &journalRepository{db: db, log: log.Named("JournalRepository")}
}

func (r *journalRepository) Add(ctx context.Context, entry *models.JournalEntry) error {
	if entry == nil || entry.ID == "" || entry.UserID == "" {
		return errors.New("journal entry ID and owner cannot be empty")
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Error("failed to add journal entry", zap.String("user_id", entry.UserID), zap.Error(err))
		return fmt.Errorf("failed to add journal entry: %w", err)
	}
	r.log.Info("added journal entry", zap.String("user_id", entry.UserID), zap.String("id", entry.ID), zap.Int("len", len(entry.Text)))
	return nil
}

func (r *journalRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.JournalEntry{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete journal entry %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *journalRepository) ListByUser(ctx context.Context, userID string) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date desc").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list journal for %s: %w", userID, err)
	}
	return entries, nil
}
