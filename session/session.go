// Package session holds the explicit per-login session object and its stores.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session token is unknown or expired.
var ErrNotFound = errors.New("session not found or expired")

// Session is created on login, signup or guest entry and destroyed on logout.
// Safety alert, unlock state and prayed ids live only as long as the session.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Guest       bool      `json:"guest"`
	CreatedAt   time.Time `json:"created_at"`
	SafetyAlert bool      `json:"safety_alert"`
	Unlocked    bool      `json:"unlocked"`
	Prayed      []string  `json:"prayed,omitempty"`
}

// New returns a session with a fresh random token.
func New(userID, name, email string, guest bool) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Email:     email,
		Guest:     guest,
		CreatedAt: time.Now().UTC(),
	}
}

// Registered reports whether the session belongs to a signed-in account.
func (s *Session) Registered() bool { return s != nil && !s.Guest && s.UserID != "" }

// HasPrayed reports whether the prayer request id was already prayed for.
func (s *Session) HasPrayed(id string) bool { return slices.Contains(s.Prayed, id) }

// MarkPrayed records id and reports whether it was newly added.
func (s *Session) MarkPrayed(id string) bool {
	if s.HasPrayed(id) {
		return false
	}
	s.Prayed = append(s.Prayed, id)
	return true
}

// Store persists sessions by token.
type Store interface {
	// Save writes a whole session. It is meant for new sessions; changes to
	// a live one go through Update.
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// Update applies fn to the stored session atomically and returns the
	// result. fn may run more than once and must only set the fields it
	// owns. Unknown or expired ids give ErrNotFound.
	Update(ctx context.Context, id string, fn func(*Session)) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session Session
	expires time.Time
}

// MemoryStore keeps sessions in process. Used when no Redis URL is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]memoryEntry
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, data: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Prayed = slices.Clone(s.Prayed)
	m.data[s.ID] = memoryEntry{session: cp, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.data[id]
	m.mu.RUnlock()
	if !ok || m.expired(e) {
		return nil, ErrNotFound
	}
	cp := e.session
	cp.Prayed = slices.Clone(e.session.Prayed)
	return &cp, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[id]
	if !ok || m.expired(e) {
		return nil, ErrNotFound
	}
	cp := e.session
	cp.Prayed = slices.Clone(e.session.Prayed)
	fn(&cp)
	m.data[id] = memoryEntry{session: cp, expires: m.now().Add(m.ttl)}

	out := cp
	out.Prayed = slices.Clone(cp.Prayed)
	return &out, nil
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return m.ttl > 0 && m.now().After(e.expires)
}

// PurgeExpired drops expired sessions and returns how many were removed.
func (m *MemoryStore) PurgeExpired(time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.data {
		if m.expired(e) {
			delete(m.data, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}
