package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/realtime"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

const maxEntryLength = 10000

// JournalResult is returned from writes; Safety is set when the entry
// text tripped the crisis detector. The entry is saved either way.
type JournalResult struct {
	Entry  *models.JournalEntry `json:"entry,omitempty"`
	Safety *SafetyState         `json:"safety,omitempty"`
}

// JournalService manages the private journal of a registered user.
type JournalService interface {
	List(ctx context.Context, sess *session.Session) ([]models.JournalEntry, error)
	Add(ctx context.Context, sess *session.Session, text string, category models.JournalCategory) (*JournalResult, error)
	Delete(ctx context.Context, sess *session.Session, id string) error
	// Subscribe delivers the full journal, newest first, now and after every
	// change. The returned function stops delivery.
	Subscribe(ctx context.Context, sess *session.Session, callback func([]models.JournalEntry)) (func(), error)
}

type journalService struct {
	repo   repository.JournalRepository
	safety SafetyService
	broker *realtime.Broker[models.JournalEntry]
	log    *zap.Logger
	now    func() time.Time
}

func NewJournalService(repo repository.JournalRepository, safety SafetyService, log *zap.Logger) JournalService {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("JournalService")
	return &journalService{
		repo:   repo,
		safety: safety,
		broker: realtime.NewBroker[models.JournalEntry](log),
		log:    log,
		now:    time.Now,
	}
}

func journalTopic(userID string) string { return "journal:" + userID }

func requireRegistered(sess *session.Session, what string) error {
	if !sess.Registered() {
		return apperr.Forbidden("Please sign in to use %s", what)
	}
	return nil
}

func (s *journalService) List(ctx context.Context, sess *session.Session) ([]models.JournalEntry, error) {
	if err := requireRegistered(sess, "the journal"); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load journal")
	}
	return entries, nil
}

func (s *journalService) Add(ctx context.Context, sess *session.Session, text string, category models.JournalCategory) (*JournalResult, error) {
	if err := requireRegistered(sess, "the journal"); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Entry cannot be empty")
	}
	if len(text) > maxEntryLength {
		return nil, apperr.Validation("Entry is too long")
	}
	if category == "" {
		category = models.JournalPrayer
	}
	if !category.Valid() {
		return nil, apperr.Validation("unknown category %q", category)
	}

	// Screened entries are still saved; the alert rides along.
	out := &JournalResult{}
	if s.safety != nil && s.safety.Check(ctx, sess, text) {
		st := s.safety.State(sess)
		out.Safety = &st
	}

	entry := &models.JournalEntry{
		ID:       uuid.NewString(),
		UserID:   sess.UserID,
		Text:     text,
		Category: category,
		Date:     s.now().UTC(),
	}
	if err := s.repo.Add(ctx, entry); err != nil {
		return nil, apperr.Persistence(err, "Failed to save entry. Check connection.")
	}
	s.log.Info("journal entry added", zap.String("user_id", sess.UserID), zap.String("category", string(category)), zap.Int("len", len(text)))
	out.Entry = entry
	// Other open views of this journal reload.
	s.broker.Publish(ctx, journalTopic(sess.UserID))
	return out, nil
}

func (s *journalService) Delete(ctx context.Context, sess *session.Session, id string) error {
	if err := requireRegistered(sess, "the journal"); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, sess.UserID, id)
	if err != nil {
		return apperr.Persistence(err, "could not delete entry")
	}
	if !ok {
		return apperr.NotFound("entry not found")
	}
	s.broker.Publish(ctx, journalTopic(sess.UserID))
	return nil
}

func (s *journalService) Subscribe(ctx context.Context, sess *session.Session, callback func([]models.JournalEntry)) (func(), error) {
	if err := requireRegistered(sess, "the journal"); err != nil {
		return nil, err
	}
	userID := sess.UserID
	loader := func(ctx context.Context) ([]models.JournalEntry, error) {
		return s.repo.ListByUser(ctx, userID)
	}
	unsubscribe, err := s.broker.Subscribe(ctx, journalTopic(userID), loader, callback)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load journal")
	}
	return unsubscribe, nil
}
