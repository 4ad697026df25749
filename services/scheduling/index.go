package scheduling

import (
	"remindly/models"
)

// armedEntry pairs a reminder with its live timer. The entry pointer doubles
// as the armed-generation token: a fire callback that still holds a stale
// entry after a replace or cancel detects it by pointer comparison.
type armedEntry struct {
	reminder models.Reminder
	timer    *reminderTimer
}

// ScheduleIndex maps a reminder's identity to its armed entry. Identity
// equality, not object identity, is the lookup key, so two distinct reminder
// values with equal identities resolve to the same entry. The index is not
// safe for concurrent use on its own; the owning Scheduler serializes access.
type ScheduleIndex struct {
	entries map[models.Identity]*armedEntry
}

func NewScheduleIndex() *ScheduleIndex {
	return &ScheduleIndex{entries: make(map[models.Identity]*armedEntry)}
}

func (ix *ScheduleIndex) Exists(id models.Identity) bool {
	_, ok := ix.entries[id]
	return ok
}

func (ix *ScheduleIndex) Get(id models.Identity) (*armedEntry, bool) {
	e, ok := ix.entries[id]
	return e, ok
}

func (ix *ScheduleIndex) Put(id models.Identity, e *armedEntry) {
	ix.entries[id] = e
}

func (ix *ScheduleIndex) Remove(id models.Identity) {
	delete(ix.entries, id)
}

func (ix *ScheduleIndex) Len() int {
	return len(ix.entries)
}

// Reminders returns a snapshot of all armed reminders.
func (ix *ScheduleIndex) Reminders() []models.Reminder {
	out := make([]models.Reminder, 0, len(ix.entries))
	for _, e := range ix.entries {
		out = append(out, e.reminder)
	}
	return out
}
