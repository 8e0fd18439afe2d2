package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
	"github.com/mattn/go-sqlite3"
)

type reminderRepo struct {
	db dbConn
}

func newReminderRepo(db dbConn) contract.ReminderRepo {
	return &reminderRepo{db: db}
}

const reminderColumns = `id, channel_id, symbol, report_date, report_timing, created_at, sent_keys`

func (r *reminderRepo) Create(ctx context.Context, reminder *entity.Reminder) error {
	query := `INSERT INTO reminders (` + reminderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	sentKeys, err := marshalSentKeys(reminder.SentKeys)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.ChannelID,
		reminder.Symbol,
		reminder.ReportDate.Unix(),
		string(reminder.ReportTiming),
		reminder.CreatedAt.Unix(),
		sentKeys,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return entity.ErrReminderExists
		}
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	return nil
}

func (r *reminderRepo) FindByReportDate(ctx context.Context, from, to time.Time) ([]*entity.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE report_date >= ? AND report_date < ?
		ORDER BY report_date, id
	`

	return r.query(ctx, query, from.Unix(), to.Unix())
}

func (r *reminderRepo) FindByChannel(ctx context.Context, channelID string) ([]*entity.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE channel_id = ?
		ORDER BY report_date, symbol
	`

	return r.query(ctx, query, channelID)
}

func (r *reminderRepo) Replace(ctx context.Context, reminder *entity.Reminder) error {
	query := `
		UPDATE reminders
		SET channel_id = ?, symbol = ?, report_date = ?, report_timing = ?, created_at = ?, sent_keys = ?
		WHERE id = ?
	`

	sentKeys, err := marshalSentKeys(reminder.SentKeys)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query,
		reminder.ChannelID,
		reminder.Symbol,
		reminder.ReportDate.Unix(),
		string(reminder.ReportTiming),
		reminder.CreatedAt.Unix(),
		sentKeys,
		reminder.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to replace reminder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return entity.ErrReminderNotFound
	}

	return nil
}

func (r *reminderRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete reminder: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *reminderRepo) DeleteReportedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE report_date < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune reminders: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

func (r *reminderRepo) query(ctx context.Context, query string, args ...any) ([]*entity.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*entity.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}

	return reminders, nil
}

func scanReminder(rows *sql.Rows) (*entity.Reminder, error) {
	var (
		reminder     entity.Reminder
		reportDate   int64
		reportTiming string
		createdAt    int64
		sentKeysJSON string
	)

	err := rows.Scan(
		&reminder.ID,
		&reminder.ChannelID,
		&reminder.Symbol,
		&reportDate,
		&reportTiming,
		&createdAt,
		&sentKeysJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reminder: %w", err)
	}

	var sentKeys []string
	if err := json.Unmarshal([]byte(sentKeysJSON), &sentKeys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sent keys of %s: %w", reminder.ID, err)
	}

	reminder.ReportDate = time.Unix(reportDate, 0).UTC()
	reminder.ReportTiming = entity.ParseReportTiming(reportTiming)
	reminder.CreatedAt = time.Unix(createdAt, 0).UTC()

	// normalizes rows written by hand or by older versions
	return reminder.WithSentKeys(sentKeys...), nil
}

func marshalSentKeys(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sent keys: %w", err)
	}
	return string(b), nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
