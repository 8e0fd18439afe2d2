package database

import (
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
)

// instance implements DataManager interface
type instance struct {
	db           *DB
	reminderRepo contract.ReminderRepo
}

// NewInstance creates a new database instance with all repositories
func NewInstance(db *DB) contract.DataManager {
	return &instance{
		db:           db,
		reminderRepo: newReminderRepo(db.conn),
	}
}

// Reminder returns the reminder repository
func (i *instance) Reminder() contract.ReminderRepo {
	return i.reminderRepo
}
