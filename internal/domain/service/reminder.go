package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/calendar"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
)

// pruneGraceDays keeps reminders around for a day after their report.
const pruneGraceDays = 1

type reminderService struct {
	dm          contract.DataManager
	earnings    contract.EarningsClient
	loc         *time.Location
	callTimeout time.Duration
	now         func() time.Time
}

func newReminder(dm contract.DataManager, earnings contract.EarningsClient, opts Options) *reminderService {
	return &reminderService{
		dm:          dm,
		earnings:    earnings,
		loc:         opts.Location,
		callTimeout: opts.CallTimeout,
		now:         opts.Now,
	}
}

// CreateReminder stores a new reminder. A second reminder for the same symbol and
// channel is rejected with entity.ErrReminderExists, never merged.
func (s *reminderService) CreateReminder(ctx context.Context, channelID, symbol string, reportDate time.Time, timing entity.ReportTiming) (*entity.Reminder, error) {
	normalized, err := entity.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, errors.New("channel id is required")
	}

	reminder := entity.NewReminder(channelID, normalized, calendar.StartOfDay(reportDate, s.loc), timing, s.now())

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	if err := s.dm.Reminder().Create(ctx, reminder); err != nil {
		if errors.Is(err, entity.ErrReminderExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	slog.Info("reminder created",
		"reminder_id", reminder.ID,
		"report_date", reminder.ReportDate.Format(time.DateOnly),
		"report_timing", string(reminder.ReportTiming),
	)
	return reminder, nil
}

// RemindNextEarnings resolves the symbol's next report, counting from the start
// of today, and creates a reminder for it.
func (s *reminderService) RemindNextEarnings(ctx context.Context, channelID, symbol string) (*entity.Reminder, error) {
	normalized, err := entity.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	after := calendar.StartOfDay(s.now(), s.loc)

	lookupCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	report, err := s.earnings.NextReport(lookupCtx, normalized, after)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to look up earnings for %s: %w", normalized, err)
	}
	if report == nil {
		return nil, entity.ErrNoUpcomingEarnings
	}

	return s.CreateReminder(ctx, channelID, normalized, report.Date, report.Timing)
}

// ListReminders returns the channel's reminders ordered as they would be delivered.
func (s *reminderService) ListReminders(ctx context.Context, channelID string) ([]*entity.Reminder, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	reminders, err := s.dm.Reminder().FindByChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	sort.Slice(reminders, func(i, j int) bool {
		a, b := reminders[i], reminders[j]
		if !a.ReportDate.Equal(b.ReportDate) {
			return a.ReportDate.Before(b.ReportDate)
		}
		if a.ReportTiming.Order() != b.ReportTiming.Order() {
			return a.ReportTiming.Order() < b.ReportTiming.Order()
		}
		return a.Symbol < b.Symbol
	})
	return reminders, nil
}

func (s *reminderService) RemoveReminder(ctx context.Context, channelID, symbol string) error {
	normalized, err := entity.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	deleted, err := s.dm.Reminder().Delete(ctx, entity.ReminderID(normalized, channelID))
	if err != nil {
		return fmt.Errorf("failed to remove reminder: %w", err)
	}
	if !deleted {
		return entity.ErrReminderNotFound
	}
	return nil
}

// Prune deletes reminders whose report date is more than the grace period in the past:
// with today as D, a report on D-1 is kept and one on D-2 is removed.
func (s *reminderService) Prune(ctx context.Context) (int64, error) {
	cutoff := calendar.AddDays(s.now(), -pruneGraceDays, s.loc)

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	deleted, err := s.dm.Reminder().DeleteReportedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reminders: %w", err)
	}
	return deleted, nil
}
