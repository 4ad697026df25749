package scheduling

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"remindly/models"
)

// Scheduler owns the live schedule and notification queue of exactly one
// client. It arms and cancels timers, moves due reminders into the queue and
// exposes the single blocking hand-off point to a delivery backend. All
// mutations of the index share one critical section, so a reminder is never
// concurrently armed and canceled in a way that leaves a dangling timer or a
// missing index entry.
type Scheduler struct {
	clientID string
	log      *zap.Logger

	mu    sync.Mutex
	index *ScheduleIndex
	queue *NotificationQueue
}

func NewScheduler(clientID string, log *zap.Logger) *Scheduler {
	return &Scheduler{
		clientID: clientID,
		log:      log.With(zap.String("clientId", clientID)),
		index:    NewScheduleIndex(),
		queue:    NewNotificationQueue(),
	}
}

// RegisterOrCancel arms the reminder when its remind flag is set and cancels
// it otherwise. Safe to call concurrently with timer fires for the same or a
// different reminder.
func (s *Scheduler) RegisterOrCancel(r models.Reminder) {
	if r.Remind {
		s.register(r)
	} else {
		s.Cancel(r)
	}
}

// register arms a reminder. If an entry with the same identity already
// exists, its timer is canceled and replaced first; this is a deterministic
// replace, not a merge. For unique kinds the identity ignores schedule
// fields, so at most one instance per kind can ever be armed.
func (s *Scheduler) register(r models.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.Identity()
	if old, ok := s.index.Get(id); ok {
		old.timer.Stop()
		s.index.Remove(id)
	}

	entry := &armedEntry{reminder: r}
	fireAt := r.NextFireTime(time.Now())
	entry.timer = newReminderTimer(fireAt, r.Kind.Period(), r.Kind.IsRegular(), func() {
		s.onFire(id, entry)
	})
	s.index.Put(id, entry)
	s.log.Info("reminder armed",
		zap.String("identity", id.String()),
		zap.Time("firstFire", fireAt),
		zap.Bool("recurring", r.Kind.IsRegular()))
}

// Cancel stops the reminder's timer and removes its index entry. Canceling a
// reminder that is not armed is a no-op. When Cancel returns, no new fire for
// this registration can occur.
func (s *Scheduler) Cancel(r models.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.Identity()
	entry, ok := s.index.Get(id)
	if !ok {
		return
	}
	entry.timer.Stop()
	s.index.Remove(id)
	s.log.Info("reminder canceled", zap.String("identity", id.String()))
}

// onFire runs on every timer fire. A stale entry (replaced or canceled after
// the fire was already in flight) is ignored. One-shot reminders are consumed
// on first fire; recurring ones stay armed. A reminder already pending in the
// queue is not enqueued twice.
func (s *Scheduler) onFire(id models.Identity, entry *armedEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.index.Get(id)
	if !ok || cur != entry {
		return
	}
	if !entry.reminder.Kind.IsRegular() {
		entry.timer.Stop()
		s.index.Remove(id)
	}
	if s.queue.Contains(id) {
		s.log.Debug("fire skipped, notification already pending", zap.String("identity", id.String()))
		return
	}
	s.queue.Enqueue(entry.reminder)
	s.log.Debug("notification queued", zap.String("identity", id.String()))
}

// NextDueNotification blocks until a notification is due, then removes the
// oldest queued reminder and returns its message and priority. It returns the
// context error if the context ends first.
func (s *Scheduler) NextDueNotification(ctx context.Context) (models.NotificationInfo, error) {
	for {
		if r, err := s.queue.DequeueOldest(); err == nil {
			return models.NotificationInfo{
				Message:      r.Kind.NotificationText(),
				HighPriority: r.Kind.HighPriority(),
			}, nil
		}
		select {
		case <-ctx.Done():
			return models.NotificationInfo{}, ctx.Err()
		case <-s.queue.Ready():
		}
	}
}

// ListArmed returns a snapshot of all currently armed reminders.
func (s *Scheduler) ListArmed() []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Reminders()
}

// close stops every armed timer. Used by the manager on shutdown.
func (s *Scheduler) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.index.Reminders() {
		if entry, ok := s.index.Get(r.Identity()); ok {
			entry.timer.Stop()
			s.index.Remove(r.Identity())
		}
	}
}
