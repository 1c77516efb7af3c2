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
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

func TestEscalationService_Submit(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	repo := new(MockEscalationRepository)
	safety := NewSafetyService(nil, testEmergencyURL, auth, nil)
	svc := NewEscalationService(repo, safety, nil)
	ctx := context.Background()
	sess := registeredSession(t, auth)

	// Raised by an earlier chat message.
	require.True(t, safety.Check(ctx, sess, "he hits me"))

	repo.On("Create", ctx, mock.MatchedBy(func(r *models.EscalationRequest) bool {
		return r.UserID == sess.UserID && r.Name == "Grace Adeyemi" && r.Flagged && r.Urgency == models.UrgencyHigh
	})).Return(nil).Once()

	req, err := svc.Submit(ctx, sess, EscalationInput{Contact: "+234 800 000 0000", Urgency: models.UrgencyLow, Description: "Please call me"})
	require.NoError(t, err)
	assert.True(t, req.Flagged)
	assert.False(t, sess.SafetyAlert, "alert cleared after filing")
	repo.AssertExpectations(t)
}

func TestEscalationService_Validation(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	repo := new(MockEscalationRepository)
	svc := NewEscalationService(repo, NewSafetyService(nil, testEmergencyURL, auth, nil), nil)
	ctx := context.Background()
	sess := registeredSession(t, auth)

	_, err := svc.Submit(ctx, guestSession(t, auth), EscalationInput{Contact: "x"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.Submit(ctx, sess, EscalationInput{Name: "Grace"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Submit(ctx, sess, EscalationInput{Name: "Grace", Contact: "x", Urgency: "urgent"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	repo.On("Create", ctx, mock.MatchedBy(func(r *models.EscalationRequest) bool {
		return r.Urgency == models.UrgencyLow && !r.Flagged
	})).Return(errors.New("offline")).Once()
	_, err = svc.Submit(ctx, sess, EscalationInput{Name: "Grace", Contact: "x"})
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	repo.AssertExpectations(t)
}

func TestEscalationService_List(t *testing.T) {
	auth := newTestAuth(new(MockUserRepository))
	repo := new(MockEscalationRepository)
	svc := NewEscalationService(repo, NewSafetyService(nil, testEmergencyURL, auth, nil), nil)
	sess := registeredSession(t, auth)

	repo.On("ListByUser", mock.Anything, sess.UserID).Return([]models.EscalationRequest{{ID: 1}}, nil).Once()
	list, err := svc.List(context.Background(), sess)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	repo.AssertExpectations(t)
}

func TestDevotionService(t *testing.T) {
	svc := NewDevotionService()

	jan1 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "1 Peter 4:8", svc.VerseOfDay(jan1).Ref)
	assert.Equal(t, "Ephesians 4:2", svc.VerseOfDay(jan1.AddDate(0, 0, 5)).Ref)

	topics := svc.Topics()
	require.Len(t, topics, 6)
	topics[0] = "changed"
	assert.Equal(t, "Restoring Trust", svc.Topics()[0])
}
