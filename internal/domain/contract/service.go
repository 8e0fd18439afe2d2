package contract

import (
	"context"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
)

type ReminderService interface {
	CreateReminder(ctx context.Context, channelID, symbol string, reportDate time.Time, timing entity.ReportTiming) (*entity.Reminder, error)
	RemindNextEarnings(ctx context.Context, channelID, symbol string) (*entity.Reminder, error)
	ListReminders(ctx context.Context, channelID string) ([]*entity.Reminder, error)
	RemoveReminder(ctx context.Context, channelID, symbol string) error
	Prune(ctx context.Context) (int64, error)
}

type DeliveryService interface {
	// SendIfNeeded runs one delivery cycle, or does nothing if one is already running.
	SendIfNeeded(ctx context.Context) error
}
