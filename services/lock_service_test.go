package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abimbolaoige/KFM-Counsel-Chat/apperr"
	"github.com/abimbolaoige/KFM-Counsel-Chat/pinlock"
	"github.com/abimbolaoige/KFM-Counsel-Chat/repository"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

func enterPIN(t *testing.T, svc LockService, sess *session.Session, pin string) pinlock.State {
	t.Helper()
	var st pinlock.State
	for _, d := range pin {
		var err error
		st, err = svc.PushDigit(context.Background(), sess, string(d))
		require.NoError(t, err)
	}
	return st
}

func TestLockService_SetupThenUnlock(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	profiles := NewProfileService(new(MockProfileRepository), new(MockTriageRepository), repository.NewMemoryKV(), 100, time.Hour, nil)
	svc := NewLockService(profiles, auth, 5, time.Minute, nil)
	ctx := context.Background()
	sess := guestSession(t, auth)

	st, err := svc.Open(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, pinlock.StageSetupFirst, st.Stage)

	st = enterPIN(t, svc, sess, "1234")
	assert.Equal(t, pinlock.StageSetupConfirm, st.Stage)

	st = enterPIN(t, svc, sess, "1234")
	assert.Equal(t, pinlock.StageUnlocked, st.Stage)
	assert.True(t, sess.Unlocked)

	pin, err := profiles.StoredPIN(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)

	// The unlock is visible to later requests through the session store.
	stored, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.Unlocked)

	require.NoError(t, svc.Close(ctx, sess))
	assert.False(t, sess.Unlocked)

	st, err = svc.Open(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, pinlock.StageLocked, st.Stage)

	st = enterPIN(t, svc, sess, "0000")
	assert.Equal(t, pinlock.StageLocked, st.Stage)
	assert.Equal(t, "Incorrect PIN", st.Error)
	assert.False(t, sess.Unlocked)

	st = enterPIN(t, svc, sess, "1234")
	assert.Equal(t, pinlock.StageUnlocked, st.Stage)
	assert.True(t, sess.Unlocked)
}

func TestLockService_SetupMismatch(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	profiles := NewProfileService(new(MockProfileRepository), new(MockTriageRepository), repository.NewMemoryKV(), 100, time.Hour, nil)
	svc := NewLockService(profiles, auth, 0, 0, nil)
	sess := guestSession(t, auth)

	enterPIN(t, svc, sess, "1234")
	st := enterPIN(t, svc, sess, "5678")
	assert.Equal(t, pinlock.StageSetupFirst, st.Stage)
	assert.Equal(t, "PINs do not match. Try again.", st.Error)

	pin, err := profiles.StoredPIN(context.Background(), sess)
	require.NoError(t, err)
	assert.Empty(t, pin)
}

func TestLockService_InputErrors(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	profiles := new(MockProfileService)
	svc := NewLockService(profiles, auth, 2, time.Minute, nil)
	ctx := context.Background()
	sess := registeredSession(t, auth)

	profiles.On("StoredPIN", ctx, sess).Return("4321", nil).Once()
	_, err := svc.Open(ctx, sess)
	require.NoError(t, err)

	_, err = svc.PushDigit(ctx, sess, "x")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = svc.PushDigit(ctx, sess, "12")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	st, err := svc.PushDigit(ctx, sess, "9")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entered)
	st, err = svc.DeleteDigit(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Entered)

	enterPIN(t, svc, sess, "0000")
	st = enterPIN(t, svc, sess, "0000")
	assert.False(t, st.CooldownUntil.IsZero())

	_, err = svc.PushDigit(ctx, sess, "4")
	assert.Equal(t, apperr.KindLocked, apperr.KindOf(err))
	profiles.AssertExpectations(t)
}

func TestLockService_PersistFailure(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	profiles := new(MockProfileService)
	svc := NewLockService(profiles, auth, 0, 0, nil)
	ctx := context.Background()
	sess := registeredSession(t, auth)

	profiles.On("StoredPIN", ctx, sess).Return("", nil).Once()
	profiles.On("SetPIN", ctx, sess, "2468").Return(errors.New("offline")).Once()

	enterPIN(t, svc, sess, "2468")
	for _, d := range "246" {
		_, err := svc.PushDigit(ctx, sess, string(d))
		require.NoError(t, err)
	}
	st, err := svc.PushDigit(ctx, sess, "8")
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.Equal(t, pinlock.StageSetupFirst, st.Stage)
	assert.False(t, sess.Unlocked)
	profiles.AssertExpectations(t)
}

func TestLockService_StoreUnavailable(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	profiles := new(MockProfileService)
	svc := NewLockService(profiles, auth, 0, 0, nil)
	sess := registeredSession(t, auth)

	profiles.On("StoredPIN", mock.Anything, sess).Return("", apperr.Persistence(errors.New("down"), "could not load profile")).Once()
	_, err := svc.State(context.Background(), sess)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestLockService_CooldownSurvivesReopen(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	profiles := new(MockProfileService)
	svc := NewLockService(profiles, auth, 2, time.Minute, nil)
	ctx := context.Background()
	sess := registeredSession(t, auth)
	profiles.On("StoredPIN", mock.Anything, mock.Anything).Return("4321", nil)

	_, err := svc.Open(ctx, sess)
	require.NoError(t, err)
	enterPIN(t, svc, sess, "0000")
	st := enterPIN(t, svc, sess, "0000")
	require.False(t, st.CooldownUntil.IsZero())

	// Remounting the view rebuilds the gate from the stored PIN.
	st, err = svc.Open(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, pinlock.StageLocked, st.Stage)
	assert.False(t, st.CooldownUntil.IsZero())
	_, err = svc.PushDigit(ctx, sess, "4")
	assert.Equal(t, apperr.KindLocked, apperr.KindOf(err))

	require.NoError(t, svc.Close(ctx, sess))
	_, err = svc.PushDigit(ctx, sess, "4")
	assert.Equal(t, apperr.KindLocked, apperr.KindOf(err))

	// A fresh sign-in for the same account is throttled too.
	other := session.New(sess.UserID, sess.Name, sess.Email, false)
	require.NoError(t, auth.Save(ctx, other))
	_, err = svc.PushDigit(ctx, other, "4")
	assert.Equal(t, apperr.KindLocked, apperr.KindOf(err))

	assert.Zero(t, svc.PurgeExpired(time.Now()), "a running cooldown is kept")
	svc.ForgetSession(sess.ID)
	svc.ForgetSession(other.ID)
	assert.Empty(t, svc.ActiveSessions())
}

func TestLockService_PurgeIdleThrottles(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	profiles := new(MockProfileService)
	svc := NewLockService(profiles, auth, 3, time.Minute, nil)
	ctx := context.Background()
	sess := guestSession(t, auth)
	profiles.On("StoredPIN", mock.Anything, mock.Anything).Return("4321", nil)

	st := enterPIN(t, svc, sess, "0000")
	assert.Equal(t, "Incorrect PIN", st.Error)
	assert.Equal(t, []string{sess.ID}, svc.ActiveSessions())
	assert.Zero(t, svc.PurgeExpired(time.Now()), "a pending failure is kept")

	enterPIN(t, svc, sess, "4321")
	assert.Zero(t, svc.PurgeExpired(time.Now()), "the open gate still uses it")

	require.NoError(t, svc.Close(ctx, sess))
	assert.Equal(t, 1, svc.PurgeExpired(time.Now()))
}

func TestLockService_UnlockKeepsSafetyAlert(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	profiles := NewProfileService(new(MockProfileRepository), new(MockTriageRepository), repository.NewMemoryKV(), 100, time.Hour, nil)
	lock := NewLockService(profiles, auth, 5, time.Minute, nil)
	safety := NewSafetyService(nil, testEmergencyURL, auth, nil)
	ctx := context.Background()
	sess := guestSession(t, auth)

	// Two requests in flight on the same session, each with its own copy.
	chatCopy, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	lockCopy, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)

	require.True(t, safety.Check(ctx, chatCopy, "he hits me"))
	enterPIN(t, lock, lockCopy, "1234")
	st := enterPIN(t, lock, lockCopy, "1234")
	require.Equal(t, pinlock.StageUnlocked, st.Stage)

	stored, err := auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.SafetyAlert)
	assert.True(t, stored.Unlocked)

	// Dismissing from a copy that never saw the alert still clears it.
	require.NoError(t, safety.Dismiss(ctx, lockCopy))
	stored, err = auth.Resolve(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, stored.SafetyAlert)
	assert.True(t, stored.Unlocked)
}
