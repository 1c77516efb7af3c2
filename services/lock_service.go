package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/pinlock"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

// LockService holds one PIN gate per session for the journal and prayer room.
type LockService interface {
	// Open re-derives the gate from the stored PIN and relocks the session.
	Open(ctx context.Context, sess *session.Session) (pinlock.State, error)
	State(ctx context.Context, sess *session.Session) (pinlock.State, error)
	// PushDigit feeds one keypad digit. Wrong PINs and mismatches are
	// reported in the returned state, not as errors.
	PushDigit(ctx context.Context, sess *session.Session, digit string) (pinlock.State, error)
	DeleteDigit(ctx context.Context, sess *session.Session) (pinlock.State, error)
	// Close tears the gate down; the next view mount starts locked again.
	// Attempt throttling outlives the gate.
	Close(ctx context.Context, sess *session.Session) error
	ActiveSessions() []string
	ForgetSession(sessionID string)
	// PurgeExpired drops attempt counters that have nothing left to enforce.
	PurgeExpired(now time.Time) int
}

type gateEntry struct {
	mu       sync.Mutex
	gate     *pinlock.Gate
	throttle string
	// Request context and session of the push in progress.
	ctx  context.Context
	sess *session.Session
}

type lockService struct {
	profiles    ProfileService
	auth        AuthService
	maxAttempts int
	cooldown    time.Duration
	log         *zap.Logger

	mu        sync.Mutex
	gates     map[string]*gateEntry
	throttles map[string]*pinlock.Throttle
}

func NewLockService(profiles ProfileService, auth AuthService, maxAttempts int, cooldown time.Duration, log *zap.Logger) LockService {
	if log == nil {
		log = zap.NewNop()
	}
	return &lockService{
		profiles:    profiles,
		auth:        auth,
		maxAttempts: maxAttempts,
		cooldown:    cooldown,
		log:         log.Named("LockService"),
		gates:       make(map[string]*gateEntry),
		throttles:   make(map[string]*pinlock.Throttle),
	}
}

// throttleKey scopes wrong-PIN counting to the account, or to the session
// for guests, so reopening the view or signing in again does not reset it.
func throttleKey(sess *session.Session) string {
	if sess.Registered() {
		return "user:" + sess.UserID
	}
	return "session:" + sess.ID
}

// throttleLocked returns the owner's throttle, creating it on first use.
// s.mu must be held.
func (s *lockService) throttleLocked(key string) *pinlock.Throttle {
	th, ok := s.throttles[key]
	if !ok {
		th = pinlock.NewThrottle(s.maxAttempts, s.cooldown, nil)
		s.throttles[key] = th
	}
	return th
}

// open builds a gate from the stored PIN and registers it. The throttle is
// looked up under the same lock so a purge cannot orphan it.
func (s *lockService) open(ctx context.Context, sess *session.Session) (*gateEntry, error) {
	stored, err := s.profiles.StoredPIN(ctx, sess)
	if err != nil {
		return nil, err
	}
	e := &gateEntry{throttle: throttleKey(sess)}
	opts := pinlock.Options{
		Persist: func(pin string) error {
			return s.profiles.SetPIN(e.ctx, e.sess, pin)
		},
		OnUnlock: func() {
			if err := s.setUnlocked(e.ctx, e.sess, true); err != nil {
				s.log.Warn("could not persist unlock", zap.Error(err))
			}
			s.log.Info("feature lock opened", zap.String("user_id", e.sess.UserID))
		},
	}

	s.mu.Lock()
	opts.Throttle = s.throttleLocked(e.throttle)
	e.gate = pinlock.New(stored, opts)
	s.gates[sess.ID] = e
	s.mu.Unlock()
	return e, nil
}

func (s *lockService) Open(ctx context.Context, sess *session.Session) (pinlock.State, error) {
	e, err := s.open(ctx, sess)
	if err != nil {
		return pinlock.State{}, err
	}
	if err := s.setUnlocked(ctx, sess, false); err != nil {
		s.log.Warn("could not persist relock", zap.Error(err))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.State(), nil
}

func (s *lockService) entry(ctx context.Context, sess *session.Session) (*gateEntry, error) {
	s.mu.Lock()
	e, ok := s.gates[sess.ID]
	s.mu.Unlock()
	if ok {
		return e, nil
	}
	if _, err := s.Open(ctx, sess); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gates[sess.ID], nil
}

func (s *lockService) State(ctx context.Context, sess *session.Session) (pinlock.State, error) {
	e, err := s.entry(ctx, sess)
	if err != nil {
		return pinlock.State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.State(), nil
}

func (s *lockService) PushDigit(ctx context.Context, sess *session.Session, digit string) (pinlock.State, error) {
	if len(digit) != 1 {
		return pinlock.State{}, apperr.Validation("send one digit at a time")
	}
	e, err := s.entry(ctx, sess)
	if err != nil {
		return pinlock.State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx, e.sess = ctx, sess
	err = e.gate.Push(digit[0])
	e.ctx, e.sess = nil, nil
	st := e.gate.State()

	switch {
	case err == nil,
		errors.Is(err, pinlock.ErrIncorrectPIN),
		errors.Is(err, pinlock.ErrPINMismatch):
		return st, nil
	case errors.Is(err, pinlock.ErrInvalidDigit):
		return st, apperr.Validation("%s", err.Error())
	case errors.Is(err, pinlock.ErrCoolingDown):
		return st, apperr.Locked("%s", err.Error())
	case errors.Is(err, pinlock.ErrUnlocked):
		return st, nil
	default:
		// Persisting the new PIN failed; the gate is back in setup.
		s.log.Warn("could not save new PIN", zap.String("user_id", sess.UserID), zap.Error(err))
		return st, apperr.Persistence(err, "Your PIN could not be saved. Please try again.")
	}
}

func (s *lockService) DeleteDigit(ctx context.Context, sess *session.Session) (pinlock.State, error) {
	e, err := s.entry(ctx, sess)
	if err != nil {
		return pinlock.State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate.Delete()
	return e.gate.State(), nil
}

func (s *lockService) Close(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	delete(s.gates, sess.ID)
	s.mu.Unlock()
	return s.setUnlocked(ctx, sess, false)
}

// setUnlocked updates the stored flag. The caller's copy follows even when
// the write fails so the current request sees the new state.
func (s *lockService) setUnlocked(ctx context.Context, sess *session.Session, on bool) error {
	err := s.auth.Update(ctx, sess, func(st *session.Session) { st.Unlocked = on })
	if err != nil {
		sess.Unlocked = on
	}
	return err
}

func (s *lockService) ActiveSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.gates))
	for id := range s.gates {
		ids = append(ids, id)
	}
	return ids
}

func (s *lockService) ForgetSession(sessionID string) {
	s.mu.Lock()
	delete(s.gates, sessionID)
	delete(s.throttles, "session:"+sessionID)
	s.mu.Unlock()
}

func (s *lockService) PurgeExpired(time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	inUse := make(map[string]bool, len(s.gates))
	for _, e := range s.gates {
		inUse[e.throttle] = true
	}
	n := 0
	for key, th := range s.throttles {
		if !inUse[key] && th.Idle() {
			delete(s.throttles, key)
			n++
		}
	}
	return n
}
