package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/pinlock"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

// ProfilePreviewSize is how many history records accompany a profile read.
const ProfilePreviewSize = 3

const warnProfileOffline = "Your profile could not be reached; showing the copy saved on this device."

// ProfileService reads and writes the per-user profile. Guests live only in
// the local key-value store; registered users fall back to it when the
// document store fails.
type ProfileService interface {
	Get(ctx context.Context, sess *session.Session) (*models.Profile, []string, error)
	Save(ctx context.Context, sess *session.Session, upd models.ProfileUpdate) (*models.Profile, []string, error)
	// History returns triage records, most recent first.
	History(ctx context.Context, sess *session.Session) ([]models.TriageRecord, error)
	AppendHistory(ctx context.Context, sess *session.Session, rec models.TriageRecord) error
	StoredPIN(ctx context.Context, sess *session.Session) (string, error)
	SetPIN(ctx context.Context, sess *session.Session, pin string) error
	// ForgetGuest drops the local profile of a guest session.
	ForgetGuest(sessionID string)
}

type profileService struct {
	profiles     repository.ProfileRepository
	triage       repository.TriageRepository
	kv           repository.KVStore
	historyLimit int
	guestTTL     time.Duration
	log          *zap.Logger
}

// NewProfileService creates the profile service. Guest profiles in kv expire
// after guestTTL, matching the session lifetime.
func NewProfileService(profiles repository.ProfileRepository, triage repository.TriageRepository, kv repository.KVStore, historyLimit int, guestTTL time.Duration, log *zap.Logger) ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &profileService{
		profiles:     profiles,
		triage:       triage,
		kv:           kv,
		historyLimit: historyLimit,
		guestTTL:     guestTTL,
		log:          log.Named("ProfileService"),
	}
}

// kvKey scopes the shared guest key by session, which stands in for the
// guest's device on the server.
func (s *profileService) kvKey(sess *session.Session) string {
	key := repository.ProfileKey(sess.UserID, !sess.Registered())
	if !sess.Registered() {
		return sess.ID + "/" + key
	}
	return key
}

func (s *profileService) loadLocal(ctx context.Context, sess *session.Session) (*models.Profile, error) {
	raw, ok, err := s.kv.Get(ctx, s.kvKey(sess))
	if err != nil {
		return nil, err
	}
	p := &models.Profile{UserID: sess.UserID}
	if ok {
		if err := json.Unmarshal(raw, p); err != nil {
			s.log.Warn("discarding unreadable local profile", zap.Error(err))
			p = &models.Profile{UserID: sess.UserID}
		}
	}
	return p, nil
}

func (s *profileService) storeLocal(ctx context.Context, sess *session.Session, p *models.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !sess.Registered() {
		ttl = s.guestTTL
	}
	return s.kv.Set(ctx, s.kvKey(sess), raw, ttl)
}

func (s *profileService) Get(ctx context.Context, sess *session.Session) (*models.Profile, []string, error) {
	// Guests only ever have the local copy.
	if !sess.Registered() {
		p, err := s.loadLocal(ctx, sess)
		if err != nil {
			return nil, nil, apperr.Persistence(err, "could not load profile")
		}
		p.TriageHistory = newestFirst(p.TriageHistory, ProfilePreviewSize)
		withDefaultName(p, sess)
		return p, nil, nil
	}

	p, err := s.profiles.Get(ctx, sess.UserID)
	if err != nil {
		s.log.Warn("document store unavailable, using local profile", zap.String("user_id", sess.UserID), zap.Error(err))
		local, lerr := s.loadLocal(ctx, sess)
		if lerr != nil {
			return nil, nil, apperr.Persistence(err, "could not load profile")
		}
		local.TriageHistory = newestFirst(local.TriageHistory, ProfilePreviewSize)
		withDefaultName(local, sess)
		return local, []string{warnProfileOffline}, nil
	}
	if p == nil {
		p = &models.Profile{UserID: sess.UserID}
	}
	// History is a separate table; losing it degrades to a warning.
	var warnings []string
	recs, err := s.triage.List(ctx, sess.UserID, ProfilePreviewSize)
	if err != nil {
		s.log.Warn("could not load triage history", zap.String("user_id", sess.UserID), zap.Error(err))
		warnings = append(warnings, "Your assessment history could not be loaded.")
	}
	p.TriageHistory = recs
	withDefaultName(p, sess)
	return p, warnings, nil
}

func withDefaultName(p *models.Profile, sess *session.Session) {
	if p.Name == "" && !sess.Guest {
		p.Name = sess.Name
	}
}

// newestFirst returns up to n records from an oldest-first slice, newest first.
func newestFirst(recs []models.TriageRecord, n int) []models.TriageRecord {
	out := make([]models.TriageRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0 && (n <= 0 || len(out) < n); i-- {
		out = append(out, recs[i])
	}
	return out
}

func validateUpdate(upd *models.ProfileUpdate) error {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(upd.Name)
	trim(upd.SpouseName)
	trim(upd.Anniversary)
	if upd.AccessPin != nil && *upd.AccessPin != "" && !pinlock.ValidPIN(*upd.AccessPin) {
		return apperr.Validation("PIN must be exactly 4 digits")
	}
	return nil
}

func applyUpdate(p *models.Profile, upd models.ProfileUpdate) {
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.SpouseName != nil {
		p.SpouseName = *upd.SpouseName
	}
	if upd.Anniversary != nil {
		p.Anniversary = *upd.Anniversary
	}
	if upd.AccessPin != nil {
		p.AccessPin = *upd.AccessPin
	}
}

func (s *profileService) saveLocal(ctx context.Context, sess *session.Session, upd models.ProfileUpdate) (*models.Profile, error) {
	p, err := s.loadLocal(ctx, sess)
	if err != nil {
		return nil, err
	}
	applyUpdate(p, upd)
	if err := s.storeLocal(ctx, sess, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *profileService) Save(ctx context.Context, sess *session.Session, upd models.ProfileUpdate) (*models.Profile, []string, error) {
	if err := validateUpdate(&upd); err != nil {
		return nil, nil, err
	}
	if !sess.Registered() {
		p, err := s.saveLocal(ctx, sess, upd)
		if err != nil {
			return nil, nil, apperr.Persistence(err, "Failed to save profile. Check connection.")
		}
		return p, nil, nil
	}

	p, err := s.profiles.Merge(ctx, sess.UserID, upd)
	if err != nil {
		s.log.Warn("document store write failed, saving locally", zap.String("user_id", sess.UserID), zap.Error(err))
		local, lerr := s.saveLocal(ctx, sess, upd)
		if lerr != nil {
			return nil, nil, apperr.Persistence(err, "Failed to save profile. Check connection.")
		}
		return local, []string{"Your profile was saved on this device only."}, nil
	}
	// Keep the local copy current so a later outage still has data.
	if err := s.storeLocal(ctx, sess, p); err != nil {
		s.log.Debug("local profile mirror failed", zap.Error(err))
	}
	s.log.Info("profile saved", zap.String("user_id", sess.UserID))
	return p, nil, nil
}

func (s *profileService) History(ctx context.Context, sess *session.Session) ([]models.TriageRecord, error) {
	if !sess.Registered() {
		p, err := s.loadLocal(ctx, sess)
		if err != nil {
			return nil, apperr.Persistence(err, "could not load history")
		}
		return newestFirst(p.TriageHistory, 0), nil
	}
	recs, err := s.triage.List(ctx, sess.UserID, 0)
	if err != nil {
		return nil, apperr.Persistence(err, "could not load history")
	}
	return recs, nil
}

func (s *profileService) AppendHistory(ctx context.Context, sess *session.Session, rec models.TriageRecord) error {
	if !sess.Registered() {
		p, err := s.loadLocal(ctx, sess)
		if err != nil {
			return apperr.Persistence(err, "could not save result")
		}
		p.TriageHistory = append(p.TriageHistory, rec)
		if s.historyLimit > 0 && len(p.TriageHistory) > s.historyLimit {
			p.TriageHistory = p.TriageHistory[len(p.TriageHistory)-s.historyLimit:]
		}
		if err := s.storeLocal(ctx, sess, p); err != nil {
			return apperr.Persistence(err, "could not save result")
		}
		return nil
	}
	rec.OwnerID = sess.UserID
	if err := s.triage.Append(ctx, &rec, s.historyLimit); err != nil {
		return apperr.Persistence(err, "could not save result")
	}
	return nil
}

func (s *profileService) StoredPIN(ctx context.Context, sess *session.Session) (string, error) {
	p, _, err := s.Get(ctx, sess)
	if err != nil {
		return "", err
	}
	return p.AccessPin, nil
}

func (s *profileService) SetPIN(ctx context.Context, sess *session.Session, pin string) error {
	if !pinlock.ValidPIN(pin) {
		return apperr.Validation("PIN must be exactly 4 digits")
	}
	_, _, err := s.Save(ctx, sess, models.ProfileUpdate{AccessPin: &pin})
	return err
}

func (s *profileService) ForgetGuest(sessionID string) {
	key := sessionID + "/" + repository.ProfileKey("", true)
	if err := s.kv.Delete(context.Background(), key); err != nil {
		s.log.Debug("could not drop guest profile", zap.Error(err))
	}
}
