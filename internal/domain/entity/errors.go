package entity

import "errors"

var (
	ErrReminderExists     = errors.New("reminder already exists")
	ErrReminderNotFound   = errors.New("reminder not found")
	ErrNoUpcomingEarnings = errors.New("no upcoming earnings found")
	ErrInvalidSymbol      = errors.New("invalid ticker symbol")
)
