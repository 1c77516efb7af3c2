package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// EscalationRepository stores counsellor intake requests.
type EscalationRepository interface {
	Create(ctx context.Context, req *models.EscalationRequest) error
	ListByUser(ctx context.Context, userID string) ([]models.EscalationRequest, error)
	// ListByStatus returns requests oldest first, high urgency ahead of low.
	ListByStatus(ctx context.Context, status models.EscalationStatus) ([]models.EscalationRequest, error)
	UpdateStatus(ctx context.Context, id uint, status models.EscalationStatus) error
}

type escalationRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewEscalationRepository(db *gorm.DB, log *zap.Logger) EscalationRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &escalationRepository{db: db, log: log.Named("EscalationRepository")}
}

func (r *escalationRepository) Create(ctx context.Context, req *models.EscalationRequest) error {
	if req == nil {
		return errors.New("escalation request cannot be nil")
	}
	if req.Status == "" {
		req.Status = models.EscalationPending
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		r.log.Error("failed to create escalation request", zap.String("user_id", req.UserID), zap.Error(err))
		return fmt.Errorf("failed to create escalation request for %s: %w", req.UserID, err)
	}
	r.log.Info("created escalation request",
		zap.Uint("id", req.ID),
		zap.String("urgency", string(req.Urgency)),
		zap.Bool("flagged", req.Flagged))
	return nil
}

func (r *escalationRepository) ListByUser(ctx context.Context, userID string) ([]models.EscalationRequest, error) {
	var reqs []models.EscalationRequest
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation requests for %s: %w", userID, err)
	}
	return reqs, nil
}

func (r *escalationRepository) ListByStatus(ctx context.Context, status models.EscalationStatus) ([]models.EscalationRequest, error) {
	var reqs []models.EscalationRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("CASE urgency WHEN 'high' THEN 0 ELSE 1 END").
		Order("created_at asc").
		Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s escalation requests: %w", status, err)
	}
	return reqs, nil
}

func (r *escalationRepository) UpdateStatus(ctx context.Context, id uint, status models.EscalationStatus) error {
	res := r.db.WithContext(ctx).Model(&models.EscalationRequest{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update escalation request %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
