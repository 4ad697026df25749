package scheduling

import (
	"errors"
	"sync"

	"remindly/models"
)

// ErrEmptyQueue is returned by DequeueOldest when the queue holds nothing.
// Correct callers check IsEmpty or block on Ready first.
var ErrEmptyQueue = errors.New("notification queue is empty")

// NotificationQueue is the FIFO holding area for reminders whose trigger time
// has elapsed and that await delivery. There is no priority reordering inside
// the queue; priority is attached per kind at dequeue time.
type NotificationQueue struct {
	mu    sync.Mutex
	items []models.Reminder
	wake  chan struct{}
}

func NewNotificationQueue() *NotificationQueue {
	return &NotificationQueue{wake: make(chan struct{}, 1)}
}

func (q *NotificationQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Contains reports whether a reminder with this identity is already pending,
// so a fire event is enqueued at most once.
func (q *NotificationQueue) Contains(id models.Identity) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.items {
		if r.Identity() == id {
			return true
		}
	}
	return false
}

func (q *NotificationQueue) Enqueue(r models.Reminder) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// DequeueOldest removes and returns the oldest queued reminder.
func (q *NotificationQueue) DequeueOldest() (models.Reminder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return models.Reminder{}, ErrEmptyQueue
	}
	r := q.items[0]
	q.items = q.items[1:]
	return r, nil
}

// Ready yields a signal after an enqueue. Wakeups coalesce, so a waiter must
// re-check the queue state after waking.
func (q *NotificationQueue) Ready() <-chan struct{} {
	return q.wake
}
