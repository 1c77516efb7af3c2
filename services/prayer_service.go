package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/llm"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/realtime"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

const (
	topicRequests    = "hub:requests"
	topicTestimonies = "hub:testimonies"

	answeredPrefix = "Answered Prayer: "
	anonymous      = "Anonymous"

	maxTopicLength = 200
	maxPostLength  = 2000
)

const errPostFailed = "Failed to post. Please try again."

// PrayerResult carries a generated prayer; Fallback marks the static one.
type PrayerResult struct {
	llm.Prayer
	Fallback bool `json:"fallback,omitempty"`
}

// PostResult is returned from hub writes. Safety is set when the text
// tripped the crisis detector; the post is kept either way.
type PostResult struct {
	Request   *models.PrayerRequest `json:"request,omitempty"`
	Testimony *models.Testimony     `json:"testimony,omitempty"`
	Safety    *SafetyState          `json:"safety,omitempty"`
}

// PrayerService serves prayer generation and the community prayer hub.
type PrayerService interface {
	Topics() []string
	Generate(ctx context.Context, sess *session.Session, topic string) (*PrayerResult, error)

	ListRequests(ctx context.Context) ([]models.PrayerRequest, error)
	AddRequest(ctx context.Context, sess *session.Session, text string) (*PostResult, error)
	// Pray counts the caller once per request per session. A repeat is a
	// no-op and reports false.
	Pray(ctx context.Context, sess *session.Session, id string) (bool, error)
	// MarkAnswered moves the caller's own request to the testimonies.
	MarkAnswered(ctx context.Context, sess *session.Session, id string) (*models.Testimony, error)
	DeleteRequest(ctx context.Context, sess *session.Session, id string) error

	ListTestimonies(ctx context.Context) ([]models.Testimony, error)
	AddTestimony(ctx context.Context, sess *session.Session, text string) (*PostResult, error)

	SubscribeRequests(ctx context.Context, callback func([]models.PrayerRequest)) (func(), error)
	SubscribeTestimonies(ctx context.Context, callback func([]models.Testimony)) (func(), error)
}

type prayerService struct {
	generator   llm.Generator
	hub         repository.HubRepository
	safety      SafetyService
	auth        AuthService
	limit       int
	timeout     time.Duration
	requests    *realtime.Broker[models.PrayerRequest]
	testimonies *realtime.Broker[models.Testimony]
	log         *zap.Logger
	now         func() time.Time
}

// NewPrayerService creates the prayer service. limit bounds hub listings.
func NewPrayerService(generator llm.Generator, hub repository.HubRepository, safety SafetyService, auth AuthService, limit int, timeout time.Duration, log *zap.Logger) PrayerService {
	if log == nil {
		log = zap.NewNop()
	}
	if generator == nil {
		generator = llm.Unavailable{}
	}
	log = log.Named("PrayerService")
	return &prayerService{
		generator:   generator,
		hub:         hub,
		safety:      safety,
		auth:        auth,
		limit:       limit,
		timeout:     timeout,
		requests:    realtime.NewBroker[models.PrayerRequest](log),
		testimonies: realtime.NewBroker[models.Testimony](log),
		log:         log,
		now:         time.Now,
	}
}

func (s *prayerService) Topics() []string {
	return append([]string(nil), PrayerTopics...)
}

func (s *prayerService) Generate(ctx context.Context, sess *session.Session, topic string) (*PrayerResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apperr.Validation("Please choose or describe a topic")
	}
	if len(topic) > maxTopicLength {
		return nil, apperr.Validation("Topic is too long")
	}
	// A crisis disclosure in a custom topic still raises the alert.
	s.safety.Check(ctx, sess, topic)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	p, err := s.generator.GeneratePrayer(ctx, topic)
	if err != nil {
		s.log.Warn("prayer generation failed, using fallback", zap.String("failure", string(llm.Classify(err))), zap.Error(err))
		return &PrayerResult{Prayer: llm.FallbackPrayer(), Fallback: true}, nil
	}
	return &PrayerResult{Prayer: p}, nil
}

// authorName is the first word of the display name.
func authorName(sess *session.Session) string {
	if f := strings.Fields(sess.Name); len(f) > 0 && !sess.Guest {
		return f[0]
	}
	return anonymous
}

func cleanPost(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("Please write something to share")
	}
	if len(text) > maxPostLength {
		return "", apperr.Validation("Post is too long")
	}
	return text, nil
}

func (s *prayerService) checkSafety(ctx context.Context, sess *session.Session, text string) *SafetyState {
	if !s.safety.Check(ctx, sess, text) {
		return nil
	}
	st := s.safety.State(sess)
	return &st
}

func (s *prayerService) loadRequests(ctx context.Context) ([]models.PrayerRequest, error) {
	return s.hub.ListRequests(ctx, s.limit)
}

func (s *prayerService) loadTestimonies(ctx context.Context) ([]models.Testimony, error) {
	return s.hub.ListTestimonies(ctx, s.limit)
}

func (s *prayerService) ListRequests(ctx context.Context) ([]models.PrayerRequest, error) {
	reqs, err := s.loadRequests(ctx)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load prayer requests")
	}
	return reqs, nil
}

func (s *prayerService) AddRequest(ctx context.Context, sess *session.Session, text string) (*PostResult, error) {
	if err := requireRegistered(sess, "the prayer hub"); err != nil {
		return nil, err
	}
	text, err := cleanPost(text)
	if err != nil {
		return nil, err
	}
	out := &PostResult{Safety: s.checkSafety(ctx, sess, text)}
	req := &models.PrayerRequest{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Author:    authorName(sess),
		Text:      text,
		Timestamp: s.now().UTC(),
	}
	if err := s.hub.AddRequest(ctx, req); err != nil {
		return nil, apperr.Persistence(err, errPostFailed)
	}
	s.log.Info("prayer request posted", zap.String("id", req.ID), zap.Int("len", len(text)))
	out.Request = req
	s.requests.Publish(ctx, topicRequests)
	return out, nil
}

func (s *prayerService) Pray(ctx context.Context, sess *session.Session, id string) (bool, error) {
	if sess.HasPrayed(id) {
		return false, nil
	}
	req, err := s.hub.GetRequest(ctx, id)
	if err != nil {
		return false, apperr.Persistence(err, "could not record prayer")
	}
	if req == nil {
		return false, apperr.NotFound("prayer request not found")
	}
	// The id is marked before the write so a failed increment is not retried.
	// Marking against the stored session stops two tabs counting twice.
	counted := true
	if err := s.auth.Update(ctx, sess, func(st *session.Session) { counted = st.MarkPrayed(id) }); err != nil {
		s.log.Warn("could not persist prayed ids", zap.Error(err))
		counted = sess.MarkPrayed(id)
	}
	if !counted {
		return false, nil
	}
	if err := s.hub.IncrementPrayerCount(ctx, id, req.PrayerCount); err != nil {
		s.log.Warn("prayer count update failed", zap.String("id", id), zap.Error(err))
		return true, nil
	}
	s.requests.Publish(ctx, topicRequests)
	return true, nil
}

func (s *prayerService) ownRequest(ctx context.Context, sess *session.Session, id string) (*models.PrayerRequest, error) {
	if err := requireRegistered(sess, "the prayer hub"); err != nil {
		return nil, err
	}
	req, err := s.hub.GetRequest(ctx, id)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load prayer request")
	}
	if req == nil {
		return nil, apperr.NotFound("prayer request not found")
	}
	if req.UserID != sess.UserID {
		return nil, apperr.Forbidden("Only the author can change this request")
	}
	return req, nil
}

func (s *prayerService) MarkAnswered(ctx context.Context, sess *session.Session, id string) (*models.Testimony, error) {
	req, err := s.ownRequest(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	author := req.Author
	if author == "" {
		author = anonymous
	}
	t := &models.Testimony{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Author:    author,
		Text:      answeredPrefix + req.Text,
		Timestamp: s.now().UTC(),
	}
	if err := s.hub.AnswerRequest(ctx, id, t); err != nil {
		return nil, apperr.Persistence(err, "could not mark prayer answered")
	}
	s.log.Info("prayer answered", zap.String("id", id))
	s.requests.Publish(ctx, topicRequests)
	s.testimonies.Publish(ctx, topicTestimonies)
	return t, nil
}

func (s *prayerService) DeleteRequest(ctx context.Context, sess *session.Session, id string) error {
	if _, err := s.ownRequest(ctx, sess, id); err != nil {
		return err
	}
	ok, err := s.hub.DeleteRequest(ctx, id)
	if err != nil {
		return apperr.Persistence(err, "could not delete prayer request")
	}
	if !ok {
		return apperr.NotFound("prayer request not found")
	}
	s.requests.Publish(ctx, topicRequests)
	return nil
}

func (s *prayerService) ListTestimonies(ctx context.Context) ([]models.Testimony, error) {
	ts, err := s.loadTestimonies(ctx)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load testimonies")
	}
	return ts, nil
}

func (s *prayerService) AddTestimony(ctx context.Context, sess *session.Session, text string) (*PostResult, error) {
	if err := requireRegistered(sess, "the prayer hub"); err != nil {
		return nil, err
	}
	text, err := cleanPost(text)
	if err != nil {
		return nil, err
	}
	out := &PostResult{Safety: s.checkSafety(ctx, sess, text)}
	t := &models.Testimony{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Author:    authorName(sess),
		Text:      text,
		Timestamp: s.now().UTC(),
	}
	if err := s.hub.AddTestimony(ctx, t); err != nil {
		return nil, apperr.Persistence(err, errPostFailed)
	}
	out.Testimony = t
	s.testimonies.Publish(ctx, topicTestimonies)
	return out, nil
}

func (s *prayerService) SubscribeRequests(ctx context.Context, callback func([]models.PrayerRequest)) (func(), error) {
	unsubscribe, err := s.requests.Subscribe(ctx, topicRequests, s.loadRequests, callback)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load prayer requests")
	}
	return unsubscribe, nil
}

func (s *prayerService) SubscribeTestimonies(ctx context.Context, callback func([]models.Testimony)) (func(), error) {
	unsubscribe, err := s.testimonies.Subscribe(ctx, topicTestimonies, s.loadTestimonies, callback)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load testimonies")
	}
	return unsubscribe, nil
}
