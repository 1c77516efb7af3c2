package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

func newTestAuth(users repository.UserRepository, cleanups ...SessionCleanup) AuthService {
	return NewAuthService(users, session.NewMemoryStore(time.Hour), nil, nil, cleanups...)
}

// registeredSession opens a saved session for a registered user.
func registeredSession(t *testing.T, auth AuthService) *session.Session {
	t.Helper()
	sess := session.New("user-1", "Grace Adeyemi", "grace@example.com", false)
	require.NoError(t, auth.Save(context.Background(), sess))
	return sess
}

func guestSession(t *testing.T, auth AuthService) *session.Session {
	t.Helper()
	sess, err := auth.Guest(context.Background())
	require.NoError(t, err)
	return sess
}

func TestAuthService_SignupValidation(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	ctx := context.Background()

	tests := []struct {
		name string
		req  SignupRequest
		kind apperr.Kind
		msg  string
	}{
		{"terms not accepted", SignupRequest{Email: "a@b.c", Password: "secret1", Name: "A"}, apperr.KindValidation, "Please accept the Terms and Privacy Policy."},
		{"missing name", SignupRequest{Email: "a@b.c", Password: "secret1", Name: "  ", TermsAccepted: true}, apperr.KindValidation, "Name is required"},
		{"bad email", SignupRequest{Email: "nope", Password: "secret1", Name: "A", TermsAccepted: true}, apperr.KindValidation, ""},
		{"weak password", SignupRequest{Email: "a@b.c", Password: "12345", Name: "A", TermsAccepted: true}, apperr.KindAuth, "Password should be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := auth.Signup(ctx, tt.req)
			assert.Nil(t, sess)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, apperr.Message(err, ""))
			}
		})
	}
}

func TestAuthService_SignupAndResolve(t *testing.T) {
	users := new(MockUserRepository)
	auth := newTestAuth(users)
	ctx := context.Background()

	users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "grace@example.com" && u.Name == "Grace" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Return(nil).Once()

	sess, err := auth.Signup(ctx, SignupRequest{Email: " Grace@Example.com ", Password: "secret1", Name: "Grace", TermsAccepted: true})
	require.NoError(t, err)
	assert.True(t, sess.Registered())

	got, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	users.AssertExpectations(t)
}

func TestAuthService_SignupDuplicate(t *testing.T) {
	users := new(MockUserRepository)
	auth := newTestAuth(users)
	ctx := context.Background()

	users.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate).Once()
	_, err := auth.Signup(ctx, SignupRequest{Email: "a@b.c", Password: "secret1", Name: "A", TermsAccepted: true})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	assert.Equal(t, "An account with this email already exists", apperr.Message(err, ""))
}

func TestAuthService_Login(t *testing.T) {
	users := new(MockUserRepository)
	auth := newTestAuth(users)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: "user-1", Email: "grace@example.com", Name: "Grace", PasswordHash: string(hash)}

	t.Run("correct password", func(t *testing.T) {
		users.On("GetByEmail", ctx, "grace@example.com").Return(user, nil).Once()
		sess, err := auth.Login(ctx, "grace@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", sess.UserID)
		assert.Equal(t, "Grace", sess.Name)
	})

	t.Run("wrong password", func(t *testing.T) {
		users.On("GetByEmail", ctx, "grace@example.com").Return(user, nil).Once()
		_, err := auth.Login(ctx, "grace@example.com", "wrong")
		assert.Equal(t, "Invalid email or password", apperr.Message(err, ""))
	})

	t.Run("unknown email", func(t *testing.T) {
		users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, nil).Once()
		_, err := auth.Login(ctx, "nobody@example.com", "secret1")
		assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	})

	t.Run("store down", func(t *testing.T) {
		users.On("GetByEmail", ctx, "grace@example.com").Return(nil, errors.New("db down")).Once()
		_, err := auth.Login(ctx, "grace@example.com", "secret1")
		assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	})
	users.AssertExpectations(t)
}

func TestAuthService_GuestAndLogout(t *testing.T) {
	var cleaned []string
	auth := newTestAuth(new(MockUserRepository), func(id string) { cleaned = append(cleaned, id) })
	ctx := context.Background()

	sess := guestSession(t, auth)
	assert.True(t, sess.Guest)
	assert.False(t, sess.Registered())

	require.NoError(t, auth.Logout(ctx, sess))
	assert.Equal(t, []string{sess.ID}, cleaned)

	_, err := auth.Resolve(ctx, sess.ID)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))

	_, err = auth.Resolve(ctx, "")
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestAuthService_PasswordReset(t *testing.T) {
	users := new(MockUserRepository)
	auth := newTestAuth(users).(*authService)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	t.Run("unknown address is silent", func(t *testing.T) {
		users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, nil).Once()
		assert.NoError(t, auth.RequestPasswordReset(ctx, "nobody@example.com"))
	})

	user := &models.User{ID: "user-1", Email: "grace@example.com"}
	t.Run("issues a token", func(t *testing.T) {
		users.On("GetByEmail", ctx, "grace@example.com").Return(user, nil).Once()
		users.On("Update", ctx, user).Return(nil).Once()
		require.NoError(t, auth.RequestPasswordReset(ctx, "grace@example.com"))
		assert.NotEmpty(t, user.ResetToken)
		require.NotNil(t, user.ResetExpires)
		assert.Equal(t, now.Add(time.Hour), *user.ResetExpires)
	})

	t.Run("expired token", func(t *testing.T) {
		auth.now = func() time.Time { return now.Add(2 * time.Hour) }
		users.On("GetByResetToken", ctx, user.ResetToken).Return(user, nil).Once()
		err := auth.ResetPassword(ctx, user.ResetToken, "newsecret")
		assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	})

	t.Run("valid token", func(t *testing.T) {
		auth.now = func() time.Time { return now.Add(time.Minute) }
		token := user.ResetToken
		users.On("GetByResetToken", ctx, token).Return(user, nil).Once()
		users.On("Update", ctx, user).Return(nil).Once()
		require.NoError(t, auth.ResetPassword(ctx, token, "newsecret"))
		assert.Empty(t, user.ResetToken)
		assert.Nil(t, user.ResetExpires)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("newsecret")))
	})
	users.AssertExpectations(t)
}

func TestAuthService_PasswordResetRoundTrip(t *testing.T) {
	users := new(MockUserRepository)
	notifier := new(MockResetNotifier)
	auth := NewAuthService(users, session.NewMemoryStore(time.Hour), notifier, nil)
	ctx := context.Background()

	user := &models.User{ID: "user-1", Email: "grace@example.com", Name: "Grace"}
	var delivered string
	users.On("GetByEmail", ctx, "grace@example.com").Return(user, nil).Once()
	users.On("Update", ctx, user).Return(nil).Twice()
	notifier.On("NotifyPasswordReset", ctx, user, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { delivered = args.String(2) }).
		Return(nil).Once()

	require.NoError(t, auth.RequestPasswordReset(ctx, "grace@example.com"))
	require.NotEmpty(t, delivered)
	assert.Equal(t, user.ResetToken, delivered)

	users.On("GetByResetToken", ctx, delivered).Return(user, nil).Once()
	require.NoError(t, auth.ResetPassword(ctx, delivered, "newsecret"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("newsecret")))
	assert.Empty(t, user.ResetToken)

	users.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAuthService_PasswordResetDeliveryFailureIsSilent(t *testing.T) {
	users := new(MockUserRepository)
	notifier := new(MockResetNotifier)
	auth := NewAuthService(users, session.NewMemoryStore(time.Hour), notifier, nil)
	ctx := context.Background()

	user := &models.User{ID: "user-1", Email: "grace@example.com"}
	users.On("GetByEmail", ctx, "grace@example.com").Return(user, nil).Once()
	users.On("Update", ctx, user).Return(nil).Once()
	notifier.On("NotifyPasswordReset", ctx, user, mock.Anything).Return(errors.New("relay down")).Once()

	assert.NoError(t, auth.RequestPasswordReset(ctx, "grace@example.com"))
	notifier.AssertExpectations(t)
}

func TestMailResetNotifier(t *testing.T) {
	mailer := new(MockResetMailer)
	n := NewMailResetNotifier(mailer, "https://counsel.example.com/reset?token=")
	ctx := context.Background()
	user := &models.User{ID: "user-1", Email: "grace@example.com", Name: "Grace"}

	mailer.On("SendPasswordReset", ctx, "grace@example.com", "Grace", "https://counsel.example.com/reset?token=a+b").Return(nil).Once()
	require.NoError(t, n.NotifyPasswordReset(ctx, user, "a b"))
	mailer.AssertExpectations(t)
}

func TestAuthService_UpdateKeepsConcurrentChanges(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	ctx := context.Background()
	sess := registeredSession(t, auth)

	first, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	second, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)

	require.NoError(t, auth.Update(ctx, first, func(st *session.Session) { st.SafetyAlert = true }))
	require.NoError(t, auth.Update(ctx, second, func(st *session.Session) { st.Unlocked = true }))
	assert.True(t, second.SafetyAlert, "the caller's copy is refreshed")

	stored, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.SafetyAlert)
	assert.True(t, stored.Unlocked)

	require.NoError(t, auth.Logout(ctx, stored))
	err = auth.Update(ctx, first, func(st *session.Session) { st.Unlocked = false })
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}
