package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// ProfileRepository stores profile documents with merge semantics.
type ProfileRepository interface {
	// Get returns nil, nil when no profile exists.
	Get(ctx context.Context, userID string) (*models.Profile, error)
	// Merge writes the non-nil fields of upd, creating the profile if needed.
	Merge(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error)
}

type profileRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewProfileRepository(db *gorm.DB, log *zap.Logger) ProfileRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &profileRepository{db: db, log: log.Named("ProfileRepository")}
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}
	var p models.Profile
	err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Error("failed to fetch profile", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch profile for %s: %w", userID, err)
	}
	return &p, nil
}

// Merge uses an UPSERT so that fields absent from upd are kept on conflict.
func (r *profileRepository) Merge(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	// Only the fields present in upd are written on conflict.
	row := models.Profile{UserID: userID, UpdatedAt: time.Now().UTC()}
	cols := []string{"updated_at"}
	if upd.Name != nil {
		row.Name = *upd.Name
		cols = append(cols, "name")
	}
	if upd.SpouseName != nil {
		row.SpouseName = *upd.SpouseName
		cols = append(cols, "spouse_name")
	}
	if upd.Anniversary != nil {
		row.Anniversary = *upd.Anniversary
		cols = append(cols, "anniversary")
	}
	if upd.AccessPin != nil {
		row.AccessPin = *upd.AccessPin
		cols = append(cols, "access_pin")
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(&row).Error
	if err != nil {
		r.log.Error("failed to merge profile", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to merge profile for %s: %w", userID, err)
	}

	// The upserted struct does not reflect kept columns; re-read.
	p, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.log.Info("merged profile", zap.String("user_id", userID), zap.Strings("fields", cols[1:]))
	return p, nil
}
