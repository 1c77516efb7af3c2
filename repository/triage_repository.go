package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// TriageRepository stores assessment history snapshots.
type TriageRepository interface {
	// Append inserts rec and, when keep > 0, drops the owner's records
	// beyond the newest keep.
	Append(ctx context.Context, rec *models.TriageRecord, keep int) error
	// List returns the owner's records, most recent first. limit <= 0 means all.
	List(ctx context.Context, ownerID string, limit int) ([]models.TriageRecord, error)
}

type triageRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTriageRepository(db *gorm.DB, log *zap.Logger) TriageRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &triageRepository{db: db, log: log.Named("TriageRepository")}
}

func (r *triageRepository) Append(ctx context.Context, rec *models.TriageRecord, keep int) error {
	if rec == nil || rec.OwnerID == "" {
		return errors.New("triage record owner cannot be empty")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to append triage record: %w", err)
		}
		if keep <= 0 {
			return nil
		}
		// Newest first; everything past keep is dropped.
		var ids []uint
		err := tx.Model(&models.TriageRecord{}).
			Where("owner_id = ?", rec.OwnerID).
			Order("date desc, id desc").
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to find stale triage records: %w", err)
		}
		if len(ids) <= keep {
			return nil
		}
		stale := ids[keep:]
		if err := tx.Delete(&models.TriageRecord{}, stale).Error; err != nil {
			return fmt.Errorf("failed to trim triage history: %w", err)
		}
		r.log.Debug("trimmed triage history", zap.Int("removed", len(stale)))
		return nil
	})
}

func (r *triageRepository) List(ctx context.Context, ownerID string, limit int) ([]models.TriageRecord, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("date desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []models.TriageRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list triage history for %s: %w", ownerID, err)
	}
	return recs, nil
}
