package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

const (
	minPasswordLength = 6
	resetTokenTTL     = time.Hour
)

// SignupRequest carries the signup form.
type SignupRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Name          string `json:"name"`
	TermsAccepted bool   `json:"terms_accepted"`
}

// SessionCleanup releases per-session state held outside the session store.
type SessionCleanup func(sessionID string)

// AuthService is the identity provider: accounts, sessions and password resets.
type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*session.Session, error)
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Guest(ctx context.Context) (*session.Session, error)
	// RequestPasswordReset never reveals whether the address is registered.
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Logout(ctx context.Context, sess *session.Session) error
	// Resolve loads the session for a bearer token.
	Resolve(ctx context.Context, token string) (*session.Session, error)
	// Save stores a whole session. Use it for sessions nothing else can see
	// yet; changes to a live session go through Update.
	Save(ctx context.Context, sess *session.Session) error
	// Update applies fn to the stored session and refreshes sess with the
	// result, so concurrent requests on one session keep each other's fields.
	Update(ctx context.Context, sess *session.Session, fn func(*session.Session)) error
}

type authService struct {
	users    repository.UserRepository
	sessions session.Store
	notifier ResetNotifier
	cleanups []SessionCleanup
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService creates the identity provider. A nil notifier logs reset
// links. cleanups run on logout.
func NewAuthService(users repository.UserRepository, sessions session.Store, notifier ResetNotifier, log *zap.Logger, cleanups ...SessionCleanup) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogResetNotifier("", log)
	}
	return &authService{
		users:    users,
		sessions: sessions,
		notifier: notifier,
		cleanups: cleanups,
		log:      log.Named("AuthService"),
		now:      time.Now,
	}
}

func (s *authService) Signup(ctx context.Context, req SignupRequest) (*session.Session, error) {
	if !req.TermsAccepted {
		return nil, apperr.Validation("Please accept the Terms and Privacy Policy.")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	email := repository.NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("A valid email address is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperr.Auth("Password should be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Persistence(err, "could not secure password")
	}
	user := &models.User{ID: uuid.NewString(), Email: email, Name: name, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Auth("An account with this email already exists")
		}
		return nil, apperr.Persistence(err, "could not create account")
	}
	s.log.Info("account created", zap.String("user_id", user.ID))
	return s.open(ctx, session.New(user.ID, user.Name, user.Email, false))
}

func (s *authService) Login(ctx context.Context, email, password string) (*session.Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Persistence(err, "could not sign in")
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Info("login rejected")
		return nil, apperr.Auth("Invalid email or password")
	}
	return s.open(ctx, session.New(user.ID, user.Name, user.Email, false))
}

func (s *authService) Guest(ctx context.Context) (*session.Session, error) {
	return s.open(ctx, session.New("", "Guest", "", true))
}

func (s *authService) open(ctx context.Context, sess *session.Session) (*session.Session, error) {
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, apperr.Persistence(err, "could not start session")
	}
	s.log.Info("session opened", zap.String("user_id", sess.UserID), zap.Bool("guest", sess.Guest))
	return sess, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	if !strings.Contains(email, "@") {
		return apperr.Validation("A valid email address is required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return apperr.Persistence(err, "could not request password reset")
	}
	if user == nil {
		return nil
	}
	expires := s.now().Add(resetTokenTTL)
	user.ResetToken = uuid.NewString()
	user.ResetExpires = &expires
	if err := s.users.Update(ctx, user); err != nil {
		return apperr.Persistence(err, "could not request password reset")
	}
	s.log.Info("password reset requested", zap.String("user_id", user.ID))

	// A delivery failure is not reported to the caller; that would reveal
	// the address is registered.
	if err := s.notifier.NotifyPasswordReset(ctx, user, user.ResetToken); err != nil {
		s.log.Error("could not deliver password reset", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperr.Auth("Password should be at least %d characters", minPasswordLength)
	}
	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		return apperr.Persistence(err, "could not reset password")
	}
	if user == nil || user.ResetExpires == nil || s.now().After(*user.ResetExpires) {
		return apperr.Auth("This reset link is invalid or has expired")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Persistence(err, "could not secure password")
	}
	user.PasswordHash = string(hash)
	user.ResetToken = ""
	user.ResetExpires = nil
	if err := s.users.Update(ctx, user); err != nil {
		return apperr.Persistence(err, "could not reset password")
	}
	s.log.Info("password reset completed", zap.String("user_id", user.ID))
	return nil
}

func (s *authService) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	for _, c := range s.cleanups {
		c(sess.ID)
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return apperr.Persistence(err, "could not end session")
	}
	s.log.Info("session closed", zap.String("user_id", sess.UserID), zap.Bool("guest", sess.Guest))
	return nil
}

func (s *authService) Resolve(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, apperr.Auth("Please sign in")
	}
	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, apperr.Auth("Your session has expired. Please sign in again.")
	}
	if err != nil {
		return nil, apperr.Persistence(err, "could not load session")
	}
	return sess, nil
}

func (s *authService) Save(ctx context.Context, sess *session.Session) error {
	if err := s.sessions.Save(ctx, sess); err != nil {
		return apperr.Persistence(err, "could not save session")
	}
	return nil
}

func (s *authService) Update(ctx context.Context, sess *session.Session, fn func(*session.Session)) error {
	fresh, err := s.sessions.Update(ctx, sess.ID, fn)
	if errors.Is(err, session.ErrNotFound) {
		return apperr.Auth("Your session has expired. Please sign in again.")
	}
	if err != nil {
		return apperr.Persistence(err, "could not save session")
	}
	*sess = *fresh
	return nil
}
