package service

import (
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/calendar"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
)

const (
	defaultCallTimeout        = 30 * time.Second
	defaultMaxConcurrentSends = 8
)

// Options tunes the services. Zero values fall back to defaults.
type Options struct {
	Location           *time.Location
	CallTimeout        time.Duration
	MaxConcurrentSends int
	Now                func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		loc, err := calendar.LoadLocation(calendar.DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		o.Location = loc
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = defaultCallTimeout
	}
	if o.MaxConcurrentSends <= 0 {
		o.MaxConcurrentSends = defaultMaxConcurrentSends
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Instance struct {
	Reminder contract.ReminderService
	Delivery contract.DeliveryService
}

func NewInstance(dm contract.DataManager, sender contract.MessageSender, earnings contract.EarningsClient, opts Options) *Instance {
	opts = opts.withDefaults()

	return &Instance{
		Reminder: newReminder(dm, earnings, opts),
		Delivery: newDelivery(dm, sender, opts),
	}
}
