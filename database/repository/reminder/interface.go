package reminderRepo

import (
	"context"

	"remindly/models"
)

// ReminderRepository persists the armed reminders of every client so the
// schedule can be rebuilt after a restart. Writes are keyed by the reminder's
// identity, mirroring the in-memory schedule index.
type ReminderRepository interface {
	SaveArmed(ctx context.Context, clientID string, r models.Reminder) error
	DeleteArmed(ctx context.Context, clientID string, id models.Identity) error
	LoadArmed(ctx context.Context, clientID string) ([]models.Reminder, error)
}
