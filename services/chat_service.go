package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/llm"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

const (
	roleUser  = "user"
	roleModel = "model"

	maxMessageLength = 4000
)

const warnTranscriptNotSaved = "This conversation could not be saved."

// ChatReply is the outcome of one user turn. When Safety is set the message
// was not sent to the counsellor model and Reply is empty.
type ChatReply struct {
	Reply    string       `json:"reply,omitempty"`
	Fallback bool         `json:"fallback,omitempty"`
	Safety   *SafetyState `json:"safety,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// ChatService runs the counselling conversation.
type ChatService interface {
	SendMessage(ctx context.Context, sess *session.Session, text string) (*ChatReply, error)
	History(ctx context.Context, sess *session.Session) ([]models.ChatMessage, error)
	// ActiveSessions lists sessions with a model-side conversation.
	ActiveSessions() []string
	// ForgetSession ends the model-side conversation for a session.
	ForgetSession(sessionID string)
}

type chatService struct {
	generator llm.Generator
	safety    SafetyService
	chats     repository.ChatRepository
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time

	mu     sync.Mutex
	active map[string]struct{}
}

func NewChatService(generator llm.Generator, safety SafetyService, chats repository.ChatRepository, timeout time.Duration, log *zap.Logger) ChatService {
	if log == nil {
		log = zap.NewNop()
	}
	if generator == nil {
		generator = llm.Unavailable{}
	}
	return &chatService{
		generator: generator,
		safety:    safety,
		chats:     chats,
		timeout:   timeout,
		log:       log.Named("ChatService"),
		now:       time.Now,
		active:    make(map[string]struct{}),
	}
}

func (s *chatService) SendMessage(ctx context.Context, sess *session.Session, text string) (*ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Message cannot be empty")
	}
	if len(text) > maxMessageLength {
		return nil, apperr.Validation("Message is too long")
	}

	// Flagged text is stored but never reaches the model.
	out := &ChatReply{}
	if s.safety.Check(ctx, sess, text) {
		st := s.safety.State(sess)
		out.Safety = &st
		out.Warnings = s.persist(ctx, sess, roleUser, text, true)
		return out, nil
	}

	warnings := s.persist(ctx, sess, roleUser, text, false)

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.mu.Lock()
	s.active[sess.ID] = struct{}{}
	s.mu.Unlock()

	start := s.now()
	reply, err := s.generator.SendMessage(callCtx, sess.ID, text)
	if err != nil {
		s.log.Warn("generation failed, using fallback",
			zap.String("failure", string(llm.Classify(err))),
			zap.Duration("elapsed", s.now().Sub(start)),
			zap.Error(err))
		reply = llm.FallbackReply
		out.Fallback = true
	} else {
		s.log.Debug("reply generated", zap.Int("prompt_len", len(text)), zap.Int("reply_len", len(reply)))
	}
	out.Reply = reply

	// Report one transcript warning per turn.
	if w := s.persist(ctx, sess, roleModel, reply, false); len(w) > 0 && len(warnings) == 0 {
		warnings = w
	}
	out.Warnings = warnings
	return out, nil
}

// persist appends one transcript turn. Failures never block the reply.
func (s *chatService) persist(ctx context.Context, sess *session.Session, role, content string, flagged bool) []string {
	if s.chats == nil {
		return nil
	}
	msg := &models.ChatMessage{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Role:      role,
		Content:   content,
		Flagged:   flagged,
		Timestamp: s.now().UTC(),
	}
	if err := s.chats.SaveMessage(ctx, msg); err != nil {
		s.log.Warn("could not save chat message", zap.String("role", role), zap.Error(err))
		return []string{warnTranscriptNotSaved}
	}
	return nil
}

func (s *chatService) History(ctx context.Context, sess *session.Session) ([]models.ChatMessage, error) {
	if s.chats == nil {
		return nil, nil
	}
	msgs, err := s.chats.GetMessagesBySession(ctx, sess.ID)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load conversation")
	}
	return msgs, nil
}

func (s *chatService) ActiveSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

func (s *chatService) ForgetSession(sessionID string) {
	s.mu.Lock()
	delete(s.active, sessionID)
	s.mu.Unlock()
	s.generator.EndChat(sessionID)
}
