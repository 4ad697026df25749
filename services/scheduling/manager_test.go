package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"remindly/models"
	"remindly/services/delivery"
)

type fakeBackend struct {
	mu       sync.Mutex
	messages []string
}

func (b *fakeBackend) Forward(message string, highPriority bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
	return nil
}

func (b *fakeBackend) delivered() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.messages...)
}

type fakeStore struct {
	mu      sync.Mutex
	saved   map[string][]models.Reminder
	deleted []models.Identity
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]models.Reminder)}
}

func (s *fakeStore) SaveArmed(_ context.Context, clientID string, r models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[clientID] = append(s.saved[clientID], r)
	return nil
}

func (s *fakeStore) DeleteArmed(_ context.Context, clientID string, id models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) LoadArmed(_ context.Context, clientID string) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Reminder(nil), s.saved[clientID]...), nil
}

func TestManagerClientRegistration(t *testing.T) {
	m := NewManager(func(string) delivery.Backend { return nil }, nil, zap.NewNop())
	defer m.Close()

	assert.False(t, m.IsRegistered("c1"))
	m.NewClient("c1")
	assert.True(t, m.IsRegistered("c1"))

	// Registering a known client is a no-op, not a reset.
	r := models.NewReminder(models.KindWater, time.Now().Add(time.Hour), true)
	require.NoError(t, m.RegisterOrCancel("c1", r))
	m.NewClient("c1")
	armed, err := m.ListArmed("c1")
	require.NoError(t, err)
	assert.Len(t, armed, 1)
}

func TestManagerRejectsUnknownClient(t *testing.T) {
	m := NewManager(func(string) delivery.Backend { return nil }, nil, zap.NewNop())
	defer m.Close()

	r := models.NewReminder(models.KindWater, time.Now(), true)
	assert.Error(t, m.RegisterOrCancel("ghost", r))
	_, err := m.ListArmed("ghost")
	assert.Error(t, err)
}

func TestManagerDispatchForwardsDueNotifications(t *testing.T) {
	backend := &fakeBackend{}
	m := NewManager(func(string) delivery.Backend { return backend }, nil, zap.NewNop())
	defer m.Close()

	m.NewClient("c1")
	water := models.NewReminder(models.KindWater, time.Now().Add(30*time.Millisecond), true)
	require.NoError(t, m.RegisterOrCancel("c1", water))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(backend.delivered()) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotEmpty(t, backend.delivered())
	assert.Equal(t, models.KindWater.NotificationText(), backend.delivered()[0])
}

func TestManagerPersistsAndRestoresArmedReminders(t *testing.T) {
	store := newFakeStore()
	m := NewManager(func(string) delivery.Backend { return nil }, store, zap.NewNop())

	m.NewClient("c1")
	water := models.NewReminder(models.KindWater, time.Now().Add(time.Hour), true)
	require.NoError(t, m.RegisterOrCancel("c1", water))

	// Persistence is fire-and-forget; give the write a moment.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		n := len(store.saved["c1"])
		store.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	m.Close()

	// A fresh manager re-arms the persisted schedule on registration.
	m2 := NewManager(func(string) delivery.Backend { return nil }, store, zap.NewNop())
	defer m2.Close()
	m2.NewClient("c1")
	armed, err := m2.ListArmed("c1")
	require.NoError(t, err)
	require.Len(t, armed, 1)
	assert.Equal(t, models.KindWater, armed[0].Kind)
}
