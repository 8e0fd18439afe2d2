// Package mongodb stores reminders in a MongoDB collection, one document per
// (symbol, channel) keyed by the reminder ID.
package mongodb

import (
	"context"
	"fmt"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const remindersCollection = "reminders"

// Store implements contract.DataManager on top of a MongoDB database.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	reminderRepo *reminderRepo
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:       client,
		db:           db,
		reminderRepo: newReminderRepo(db.Collection(remindersCollection)),
	}, nil
}

// EnsureIndexes creates the report date and channel indexes if they are missing.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(remindersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: fieldEarningsDate, Value: 1}}},
		{Keys: bson.D{{Key: fieldChannelID, Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create reminder indexes: %w", err)
	}
	return nil
}

func (s *Store) Reminder() contract.ReminderRepo {
	return s.reminderRepo
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
