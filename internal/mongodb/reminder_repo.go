package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	fieldID           = "_id"
	fieldChannelID    = "channel_id"
	fieldEarningsDate = "earnings_date"
)

type reminderDocument struct {
	ID           string    `bson:"_id"`
	ChannelID    string    `bson:"channel_id"`
	Symbol       string    `bson:"symbol"`
	EarningsDate time.Time `bson:"earnings_date"`
	EarningsHour string    `bson:"earnings_hour"`
	CreatedAt    time.Time `bson:"created_at"`
	SentKeys     []string  `bson:"sent_keys"`
}

func toDocument(r *entity.Reminder) reminderDocument {
	sentKeys := r.SentKeys
	if sentKeys == nil {
		sentKeys = []string{}
	}
	return reminderDocument{
		ID:           r.ID,
		ChannelID:    r.ChannelID,
		Symbol:       r.Symbol,
		EarningsDate: r.ReportDate,
		EarningsHour: string(r.ReportTiming),
		CreatedAt:    r.CreatedAt,
		SentKeys:     sentKeys,
	}
}

func (d reminderDocument) toEntity() *entity.Reminder {
	r := &entity.Reminder{
		ID:           d.ID,
		ChannelID:    d.ChannelID,
		Symbol:       d.Symbol,
		ReportDate:   d.EarningsDate,
		ReportTiming: entity.ParseReportTiming(d.EarningsHour),
		CreatedAt:    d.CreatedAt,
	}
	return r.WithSentKeys(d.SentKeys...)
}

type reminderRepo struct {
	coll *mongo.Collection
}

func newReminderRepo(coll *mongo.Collection) *reminderRepo {
	return &reminderRepo{coll: coll}
}

func (r *reminderRepo) Create(ctx context.Context, reminder *entity.Reminder) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(reminder)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entity.ErrReminderExists
		}
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *reminderRepo) FindByReportDate(ctx context.Context, from, to time.Time) ([]*entity.Reminder, error) {
	filter := bson.M{fieldEarningsDate: bson.M{"$gte": from, "$lt": to}}
	opts := options.Find().SetSort(bson.D{{Key: fieldEarningsDate, Value: 1}, {Key: fieldID, Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *reminderRepo) FindByChannel(ctx context.Context, channelID string) ([]*entity.Reminder, error) {
	filter := bson.M{fieldChannelID: channelID}
	opts := options.Find().SetSort(bson.D{{Key: fieldEarningsDate, Value: 1}, {Key: "symbol", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *reminderRepo) Replace(ctx context.Context, reminder *entity.Reminder) error {
	result, err := r.coll.ReplaceOne(ctx, bson.M{fieldID: reminder.ID}, toDocument(reminder))
	if err != nil {
		return fmt.Errorf("failed to replace reminder: %w", err)
	}
	if result.MatchedCount == 0 {
		return entity.ErrReminderNotFound
	}
	return nil
}

func (r *reminderRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{fieldID: id})
	if err != nil {
		return false, fmt.Errorf("failed to delete reminder: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *reminderRepo) DeleteReportedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{fieldEarningsDate: bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune reminders: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *reminderRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entity.Reminder, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}

	var docs []reminderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}

	reminders := make([]*entity.Reminder, 0, len(docs))
	for _, doc := range docs {
		reminders = append(reminders, doc.toEntity())
	}
	return reminders, nil
}
