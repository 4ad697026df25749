package reminderRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"remindly/database"
	"remindly/models"
)

type armedReminderDoc struct {
	ClientID    string    `bson:"clientId"`
	Kind        string    `bson:"kind"`
	Slot        string    `bson:"slot"`
	TriggerTime time.Time `bson:"triggerTime"`
	TimeZone    string    `bson:"timeZone"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

type mongoReminderRepo struct {
	coll *mongo.Collection
}

// NewMongoReminderRepo returns a new ReminderRepository instance using MongoDB.
func NewMongoReminderRepo() ReminderRepository {
	db := database.MongoClient.Database("remindly")
	return &mongoReminderRepo{
		coll: db.Collection("armed_reminders"),
	}
}

func identityFilter(clientID string, id models.Identity) bson.M {
	return bson.M{"clientId": clientID, "kind": string(id.Kind), "slot": id.Slot}
}

// SaveArmed upserts the reminder under its identity, so re-registration of a
// unique kind replaces the stored schedule instead of duplicating it.
func (r *mongoReminderRepo) SaveArmed(ctx context.Context, clientID string, rem models.Reminder) error {
	id := rem.Identity()
	doc := armedReminderDoc{
		ClientID:    clientID,
		Kind:        string(rem.Kind),
		Slot:        id.Slot,
		TriggerTime: rem.TriggerTime,
		TimeZone:    rem.TimeZone,
		UpdatedAt:   time.Now(),
	}
	_, err := r.coll.UpdateOne(ctx,
		identityFilter(clientID, id),
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save armed reminder %s for client %s: %w", id, clientID, err)
	}
	return nil
}

func (r *mongoReminderRepo) DeleteArmed(ctx context.Context, clientID string, id models.Identity) error {
	if _, err := r.coll.DeleteOne(ctx, identityFilter(clientID, id)); err != nil {
		return fmt.Errorf("delete armed reminder %s for client %s: %w", id, clientID, err)
	}
	return nil
}

func (r *mongoReminderRepo) LoadArmed(ctx context.Context, clientID string) ([]models.Reminder, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"clientId": clientID})
	if err != nil {
		return nil, fmt.Errorf("load armed reminders for client %s: %w", clientID, err)
	}
	defer cursor.Close(ctx)

	var reminders []models.Reminder
	for cursor.Next(ctx) {
		var doc armedReminderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode armed reminder for client %s: %w", clientID, err)
		}
		kind, err := models.ParseKind(doc.Kind)
		if err != nil {
			continue
		}
		reminders = append(reminders, models.Reminder{
			Kind:        kind,
			TriggerTime: doc.TriggerTime,
			Remind:      true,
			TimeZone:    doc.TimeZone,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate armed reminders for client %s: %w", clientID, err)
	}
	return reminders, nil
}
