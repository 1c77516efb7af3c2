package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// HubRepository stores the global prayer requests and testimonies.
type HubRepository interface {
	AddRequest(ctx context.Context, req *models.PrayerRequest) error
	// GetRequest returns nil, nil when the request does not exist.
	GetRequest(ctx context.Context, id string) (*models.PrayerRequest, error)
	// ListRequests returns at most limit requests, newest first.
	ListRequests(ctx context.Context, limit int) ([]models.PrayerRequest, error)
	DeleteRequest(ctx context.Context, id string) (bool, error)
	// IncrementPrayerCount writes current+1 unconditionally. Concurrent
	// increments from the same observed value collapse into one.
	IncrementPrayerCount(ctx context.Context, id string, current int) error
	// AnswerRequest deletes the request and records testimony in one transaction.
	AnswerRequest(ctx context.Context, id string, testimony *models.Testimony) error

	AddTestimony(ctx context.Context, t *models.Testimony) error
	ListTestimonies(ctx context.Context, limit int) ([]models.Testimony, error)
}

type hubRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewHubRepository(db *gorm.DB, log *zap.Logger) HubRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &hubRepository{db: db, log: log.Named("HubRepository")}
}

func (r *hubRepository) AddRequest(ctx context.Context, req *models.PrayerRequest) error {
	if req == nil || req.ID == "" {
		return errors.New("prayer request ID cannot be empty")
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		r.log.Error("failed to add prayer request", zap.Error(err))
		return fmt.Errorf("failed to add prayer request: %w", err)
	}
	r.log.Info("added prayer request", zap.String("id", req.ID))
	return nil
}

func (r *hubRepository) GetRequest(ctx context.Context, id string) (*models.PrayerRequest, error) {
	var req models.PrayerRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch prayer request %s: %w", id, err)
	}
	return &req, nil
}

func (r *hubRepository) ListRequests(ctx context.Context, limit int) ([]models.PrayerRequest, error) {
	var reqs []models.PrayerRequest
	err := r.db.WithContext(ctx).Order("timestamp desc").Limit(limit).Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list prayer requests: %w", err)
	}
	return reqs, nil
}

func (r *hubRepository) DeleteRequest(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.PrayerRequest{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete prayer request %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *hubRepository) IncrementPrayerCount(ctx context.Context, id string, current int) error {
	res := r.db.WithContext(ctx).Model(&models.PrayerRequest{}).
		Where("id = ?", id).
		Update("prayer_count", current+1)
	if res.Error != nil {
		return fmt.Errorf("failed to update prayer count for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *hubRepository) AnswerRequest(ctx context.Context, id string, testimony *models.Testimony) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.PrayerRequest{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete answered request %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Create(testimony).Error; err != nil {
			return fmt.Errorf("failed to record answered prayer: %w", err)
		}
		return nil
	})
}

func (r *hubRepository) AddTestimony(ctx context.Context, t *models.Testimony) error {
	if t == nil || t.ID == "" {
		return errors.New("testimony ID cannot be empty")
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to add testimony: %w", err)
	}
	return nil
}

func (r *hubRepository) ListTestimonies(ctx context.Context, limit int) ([]models.Testimony, error) {
	var ts []models.Testimony
	err := r.db.WithContext(ctx).Order("timestamp desc").Limit(limit).Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list testimonies: %w", err)
	}
	return ts, nil
}
