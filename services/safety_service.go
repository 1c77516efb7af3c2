package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/safety"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

// SafetyAlertMessage is shown whenever the alert is raised.
const SafetyAlertMessage = "We detected language that suggests immediate danger or abuse. Your safety matters deeply to God and to us. Please reach out for human help immediately."

// SafetyState is the session's alert state plus the channels offered with it.
type SafetyState struct {
	Alert        bool   `json:"alert"`
	Message      string `json:"message,omitempty"`
	EmergencyURL string `json:"emergency_url,omitempty"`
	Escalation   string `json:"escalation,omitempty"`
	Verse        string `json:"verse,omitempty"`
}

// SafetyService runs the crisis detector and owns the session alert flag.
type SafetyService interface {
	// Check runs the detector over fields and raises the alert on a match.
	// A failure to persist the flag is logged; the match still stands.
	Check(ctx context.Context, sess *session.Session, fields ...string) bool
	State(sess *session.Session) SafetyState
	// Dismiss is the "I am safe" action.
	Dismiss(ctx context.Context, sess *session.Session) error
	// Clear lowers the alert after an escalation was filed.
	Clear(ctx context.Context, sess *session.Session) error
}

type safetyService struct {
	detector     *safety.Detector
	emergencyURL string
	auth         AuthService
	log          *zap.Logger
}

func NewSafetyService(detector *safety.Detector, emergencyURL string, auth AuthService, log *zap.Logger) SafetyService {
	if detector == nil {
		detector = safety.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &safetyService{detector: detector, emergencyURL: emergencyURL, auth: auth, log: log.Named("SafetyService")}
}

func (s *safetyService) Check(ctx context.Context, sess *session.Session, fields ...string) bool {
	if !s.detector.DetectAny(fields...) {
		return false
	}
	// The pattern, not the text, is logged.
	for _, f := range fields {
		if p, ok := s.detector.Match(f); ok {
			s.log.Warn("safety alert raised", zap.String("session_user", sess.UserID), zap.String("pattern", p))
			break
		}
	}
	if err := s.setAlert(ctx, sess, true); err != nil {
		s.log.Warn("could not persist safety alert", zap.Error(err))
		sess.SafetyAlert = true
	}
	return true
}

func (s *safetyService) State(sess *session.Session) SafetyState {
	if !sess.SafetyAlert {
		return SafetyState{}
	}
	return SafetyState{
		Alert:        true,
		Message:      SafetyAlertMessage,
		EmergencyURL: s.emergencyURL,
		Escalation:   "/api/escalations",
		Verse:        "God is our refuge and strength, an ever-present help in trouble. (Psalm 46:1)",
	}
}

func (s *safetyService) Dismiss(ctx context.Context, sess *session.Session) error {
	s.log.Info("safety alert dismissed", zap.String("session_user", sess.UserID))
	return s.setAlert(ctx, sess, false)
}

func (s *safetyService) Clear(ctx context.Context, sess *session.Session) error {
	return s.setAlert(ctx, sess, false)
}

// setAlert writes the flag even when the caller's copy already agrees;
// another request may have changed the stored session since.
func (s *safetyService) setAlert(ctx context.Context, sess *session.Session, on bool) error {
	return s.auth.Update(ctx, sess, func(st *session.Session) { st.SafetyAlert = on })
}
