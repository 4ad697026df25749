package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"remindly/models"
	"remindly/services/delivery"
)

// Store persists armed reminders so a client's schedule survives a restart.
// The manager treats it as fire-and-forget: failures are logged, never
// blocked on.
type Store interface {
	SaveArmed(ctx context.Context, clientID string, r models.Reminder) error
	DeleteArmed(ctx context.Context, clientID string, id models.Identity) error
	LoadArmed(ctx context.Context, clientID string) ([]models.Reminder, error)
}

// BackendFactory builds the delivery backend paired with a new client's
// scheduler. A nil backend means notifications are pulled by the caller
// (long-polling transport) and no dispatch loop is started.
type BackendFactory func(clientID string) delivery.Backend

const persistTimeout = 5 * time.Second

// Manager owns one Scheduler per registered client, pairs it with a delivery
// backend and runs the per-client dispatch loop that drains due notifications
// into the backend. It is an explicitly constructed service with a defined
// lifecycle; Close stops all dispatch loops and timers.
type Manager struct {
	newBackend BackendFactory
	store      Store
	log        *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	clients map[string]*managedClient
}

type managedClient struct {
	scheduler *Scheduler
	backend   delivery.Backend
}

func NewManager(newBackend BackendFactory, store Store, log *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		newBackend: newBackend,
		store:      store,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		clients:    make(map[string]*managedClient),
	}
}

// NewClient creates the scheduler + backend pairing for a client id,
// re-arming any persisted reminders. Registering an already-known client is
// a no-op.
func (m *Manager) NewClient(clientID string) {
	m.mu.Lock()
	if _, ok := m.clients[clientID]; ok {
		m.mu.Unlock()
		return
	}
	mc := &managedClient{
		scheduler: NewScheduler(clientID, m.log),
		backend:   m.newBackend(clientID),
	}
	m.clients[clientID] = mc
	m.mu.Unlock()

	m.restoreArmed(clientID, mc.scheduler)

	if mc.backend != nil {
		go m.dispatch(clientID, mc.scheduler, mc.backend)
	}
	m.log.Info("client registered", zap.String("clientId", clientID))
}

// IsRegistered reports whether a scheduler exists for this client id.
func (m *Manager) IsRegistered(clientID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clients[clientID]
	return ok
}

// Scheduler returns the client's scheduler, for transports that pull
// notifications directly (long polling).
func (m *Manager) Scheduler(clientID string) (*Scheduler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mc, ok := m.clients[clientID]
	if !ok {
		return nil, false
	}
	return mc.scheduler, true
}

// RegisterOrCancel routes a reminder to the client's scheduler and notifies
// the store in the background.
func (m *Manager) RegisterOrCancel(clientID string, r models.Reminder) error {
	m.mu.RLock()
	mc, ok := m.clients[clientID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("client %s is not registered", clientID)
	}
	mc.scheduler.RegisterOrCancel(r)
	go m.persist(clientID, r)
	return nil
}

// ListArmed returns the client's armed reminders.
func (m *Manager) ListArmed(clientID string) ([]models.Reminder, error) {
	m.mu.RLock()
	mc, ok := m.clients[clientID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("client %s is not registered", clientID)
	}
	return mc.scheduler.ListArmed(), nil
}

// Close stops every dispatch loop and armed timer.
func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mc := range m.clients {
		mc.scheduler.close()
	}
	m.clients = make(map[string]*managedClient)
}

// dispatch drains due notifications for one client into its backend. Forward
// failures are logged and not retried here.
func (m *Manager) dispatch(clientID string, s *Scheduler, backend delivery.Backend) {
	for {
		info, err := s.NextDueNotification(m.ctx)
		if err != nil {
			return
		}
		if err := backend.Forward(info.Message, info.HighPriority); err != nil {
			m.log.Warn("notification forwarding failed",
				zap.String("clientId", clientID),
				zap.Error(err))
		}
	}
}

func (m *Manager) restoreArmed(clientID string, s *Scheduler) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.ctx, persistTimeout)
	defer cancel()
	reminders, err := m.store.LoadArmed(ctx, clientID)
	if err != nil {
		m.log.Warn("loading armed reminders failed", zap.String("clientId", clientID), zap.Error(err))
		return
	}
	for _, r := range reminders {
		s.RegisterOrCancel(r)
	}
	if len(reminders) > 0 {
		m.log.Info("armed reminders restored",
			zap.String("clientId", clientID),
			zap.Int("count", len(reminders)))
	}
}

func (m *Manager) persist(clientID string, r models.Reminder) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	var err error
	if r.Remind {
		err = m.store.SaveArmed(ctx, clientID, r)
	} else {
		err = m.store.DeleteArmed(ctx, clientID, r.Identity())
	}
	if err != nil {
		m.log.Warn("persisting reminder state failed",
			zap.String("clientId", clientID),
			zap.String("identity", r.Identity().String()),
			zap.Error(err))
	}
}
