package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/abimbolaoige/KFM-Counsel-Chat/llm"
	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
	"github.com/abimbolaoige/KFM-Counsel-Chat/session"
)

// MockUserRepository is a mock type for the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

// MockProfileRepository is a mock type for the ProfileRepository interface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) Merge(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.Profile, error) {
	args := m.Called(ctx, userID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

// MockTriageRepository is a mock type for the TriageRepository interface
type MockTriageRepository struct {
	mock.Mock
}

func (m *MockTriageRepository) Append(ctx context.Context, rec *models.TriageRecord, keep int) error {
	return m.Called(ctx, rec, keep).Error(0)
}

func (m *MockTriageRepository) List(ctx context.Context, ownerID string, limit int) ([]models.TriageRecord, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TriageRecord), args.Error(1)
}

// MockProfileService is a mock type for the ProfileService interface
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) Get(ctx context.Context, sess *session.Session) (*models.Profile, []string, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	w, _ := args.Get(1).([]string)
	return args.Get(0).(*models.Profile), w, args.Error(2)
}

func (m *MockProfileService) Save(ctx context.Context, sess *session.Session, upd models.ProfileUpdate) (*models.Profile, []string, error) {
	args := m.Called(ctx, sess, upd)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	w, _ := args.Get(1).([]string)
	return args.Get(0).(*models.Profile), w, args.Error(2)
}

func (m *MockProfileService) History(ctx context.Context, sess *session.Session) ([]models.TriageRecord, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TriageRecord), args.Error(1)
}

func (m *MockProfileService) AppendHistory(ctx context.Context, sess *session.Session, rec models.TriageRecord) error {
	return m.Called(ctx, sess, rec).Error(0)
}

func (m *MockProfileService) StoredPIN(ctx context.Context, sess *session.Session) (string, error) {
	args := m.Called(ctx, sess)
	return args.String(0), args.Error(1)
}

func (m *MockProfileService) SetPIN(ctx context.Context, sess *session.Session, pin string) error {
	return m.Called(ctx, sess, pin).Error(0)
}

func (m *MockProfileService) ForgetGuest(sessionID string) {
	m.Called(sessionID)
}

// MockGenerator is a mock type for the llm.Generator interface
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	args := m.Called(ctx, chatID, text)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) GeneratePrayer(ctx context.Context, topic string) (llm.Prayer, error) {
	args := m.Called(ctx, topic)
	return args.Get(0).(llm.Prayer), args.Error(1)
}

func (m *MockGenerator) EndChat(chatID string) {
	m.Called(chatID)
}

// MockChatRepository is a mock type for the ChatRepository interface
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) SaveMessage(ctx context.Context, message *models.ChatMessage) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockChatRepository) GetMessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

// MockHubRepository is a mock type for the HubRepository interface
type MockHubRepository struct {
	mock.Mock
}

func (m *MockHubRepository) AddRequest(ctx context.Context, req *models.PrayerRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockHubRepository) GetRequest(ctx context.Context, id string) (*models.PrayerRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PrayerRequest), args.Error(1)
}

func (m *MockHubRepository) ListRequests(ctx context.Context, limit int) ([]models.PrayerRequest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PrayerRequest), args.Error(1)
}

func (m *MockHubRepository) DeleteRequest(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockHubRepository) IncrementPrayerCount(ctx context.Context, id string, current int) error {
	return m.Called(ctx, id, current).Error(0)
}

func (m *MockHubRepository) AnswerRequest(ctx context.Context, id string, testimony *models.Testimony) error {
	return m.Called(ctx, id, testimony).Error(0)
}

func (m *MockHubRepository) AddTestimony(ctx context.Context, t *models.Testimony) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockHubRepository) ListTestimonies(ctx context.Context, limit int) ([]models.Testimony, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Testimony), args.Error(1)
}

// MockJournalRepository is a mock type for the JournalRepository interface
type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Add(ctx context.Context, entry *models.JournalEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockJournalRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockJournalRepository) ListByUser(ctx context.Context, userID string) ([]models.JournalEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.JournalEntry), args.Error(1)
}

// MockEscalationRepository is a mock type for the EscalationRepository interface
type MockEscalationRepository struct {
	mock.Mock
}

func (m *MockEscalationRepository) Create(ctx context.Context, req *models.EscalationRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockEscalationRepository) ListByUser(ctx context.Context, userID string) ([]models.EscalationRequest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EscalationRequest), args.Error(1)
}

func (m *MockEscalationRepository) ListByStatus(ctx context.Context, status models.EscalationStatus) ([]models.EscalationRequest, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EscalationRequest), args.Error(1)
}

func (m *MockEscalationRepository) UpdateStatus(ctx context.Context, id uint, status models.EscalationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

// MockResetNotifier is a mock type for the ResetNotifier interface
type MockResetNotifier struct {
	mock.Mock
}

func (m *MockResetNotifier) NotifyPasswordReset(ctx context.Context, user *models.User, token string) error {
	return m.Called(ctx, user, token).Error(0)
}

// MockResetMailer is a mock type for the ResetMailer interface
type MockResetMailer struct {
	mock.Mock
}

func (m *MockResetMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	return m.Called(ctx, to, name, link).Error(0)
}

// MockKVStore is a mock type for the KVStore interface
type MockKVStore struct {
	mock.Mock
}

func (m *MockKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockKVStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
