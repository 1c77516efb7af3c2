package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

// EscalationInput is the counsellor intake form.
type EscalationInput struct {
	Name        string         `json:"name"`
	Contact     string         `json:"contact"`
	Urgency     models.Urgency `json:"urgency"`
	Description string         `json:"description"`
}

// EscalationService hands a user over to a human counsellor.
type EscalationService interface {
	// Submit files the request and lowers the session's safety alert.
	Submit(ctx context.Context, sess *session.Session, in EscalationInput) (*models.EscalationRequest, error)
	List(ctx context.Context, sess *session.Session) ([]models.EscalationRequest, error)
}

type escalationService struct {
	repo   repository.EscalationRepository
	safety SafetyService
	log    *zap.Logger
}

func NewEscalationService(repo repository.EscalationRepository, safety SafetyService, log *zap.Logger) EscalationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &escalationService{repo: repo, safety: safety, log: log.Named("EscalationService")}
}

func (s *escalationService) Submit(ctx context.Context, sess *session.Session, in EscalationInput) (*models.EscalationRequest, error) {
	if err := requireRegistered(sess, "counsellor requests"); err != nil {
		return nil, err
	}
	// Normalise the form, falling back to the account name.
	in.Name = strings.TrimSpace(in.Name)
	in.Contact = strings.TrimSpace(in.Contact)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		in.Name = sess.Name
	}
	if in.Name == "" {
		return nil, apperr.Validation("Name is required")
	}
	if in.Contact == "" {
		return nil, apperr.Validation("Please tell us how to reach you")
	}
	if in.Urgency == "" {
		in.Urgency = models.UrgencyLow
	}
	if in.Urgency != models.UrgencyLow && in.Urgency != models.UrgencyHigh {
		return nil, apperr.Validation("Urgency must be low or high")
	}
	if len(in.Description) > maxPostLength {
		return nil, apperr.Validation("Description is too long")
	}

	// A raised alert or a flagged description jumps the queue.
	req := &models.EscalationRequest{
		UserID:      sess.UserID,
		Name:        in.Name,
		Contact:     in.Contact,
		Urgency:     in.Urgency,
		Description: in.Description,
		Flagged:     sess.SafetyAlert || s.safety.Check(ctx, sess, in.Description),
	}
	if req.Flagged {
		req.Urgency = models.UrgencyHigh
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, apperr.Persistence(err, "Your request could not be sent. Please use the emergency contact.")
	}
	// A counsellor now has the request; the banner can go.
	if err := s.safety.Clear(ctx, sess); err != nil {
		s.log.Warn("could not clear safety alert", zap.Error(err))
	}
	return req, nil
}

func (s *escalationService) List(ctx context.Context, sess *session.Session) ([]models.EscalationRequest, error) {
	if err := requireRegistered(sess, "counsellor requests"); err != nil {
		return nil, err
	}
	reqs, err := s.repo.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load requests")
	}
	return reqs, nil
}
