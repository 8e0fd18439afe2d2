package contract

import (
	"context"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
)

// DataManager aggregates all repository interfaces
type DataManager interface {
	Reminder() ReminderRepo
}

// ReminderRepo defines the contract for reminder persistence.
// There are no multi-row transactions: Replace is whole-row, last writer wins.
type ReminderRepo interface {
	// Create fails with entity.ErrReminderExists when the ID is taken.
	Create(ctx context.Context, reminder *entity.Reminder) error
	// FindByReportDate returns reminders with from <= ReportDate < to.
	FindByReportDate(ctx context.Context, from, to time.Time) ([]*entity.Reminder, error)
	FindByChannel(ctx context.Context, channelID string) ([]*entity.Reminder, error)
	Replace(ctx context.Context, reminder *entity.Reminder) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteReportedBefore removes reminders with ReportDate < cutoff.
	DeleteReportedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
