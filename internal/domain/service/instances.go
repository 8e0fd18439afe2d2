package service

import (
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/calendar"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
)

// Instance keys are matched against Reminder.SentKeys, so they must stay stable
// and must not carry anything reminder specific.
const (
	keyDayBeforeAfternoon = "1pm-yesterday"
	keySameDayMorning     = "9am-today"
	keySameDayAfternoon   = "3pm-today"
)

const (
	// earlySendSlack lets a cycle pick up instances due shortly after it wakes,
	// since wake ticks are not precise to the second.
	earlySendSlack = 100 * time.Second

	// lookaheadDays bounds the report dates a cycle reads from the store.
	lookaheadDays = 3
)

var (
	morning   = calendar.ClockTime{Hour: 9}
	afternoon = calendar.ClockTime{Hour: 13}
	lateDay   = calendar.ClockTime{Hour: 15}
)

// current schedule for each reporting hour (business timezone)
//
//	before market open:  1pm the day before
//	after market close:  9am and 3pm the day of
//	during market hours: 1pm the day before, 9am the day of
//	unknown:             same as during market hours
func deriveInstances(reportDate time.Time, timing entity.ReportTiming, loc *time.Location) []entity.Instance {
	day := calendar.StartOfDay(reportDate, loc)
	dayBefore := calendar.AddDays(day, -1, loc)

	dayBeforeAfternoon := entity.Instance{Key: keyDayBeforeAfternoon, DueAt: calendar.At(dayBefore, afternoon, loc)}
	sameDayMorning := entity.Instance{Key: keySameDayMorning, DueAt: calendar.At(day, morning, loc)}

	switch timing {
	case entity.TimingBeforeOpen:
		return []entity.Instance{dayBeforeAfternoon}
	case entity.TimingAfterClose:
		return []entity.Instance{
			sameDayMorning,
			{Key: keySameDayAfternoon, DueAt: calendar.At(day, lateDay, loc)},
		}
	default:
		return []entity.Instance{dayBeforeAfternoon, sameDayMorning}
	}
}

// dueInstances keeps, per reminder, the instances that are not sent yet and are
// due no later than now plus the slack. Overdue instances are kept.
func dueInstances(reminders []*entity.Reminder, now time.Time, loc *time.Location) []entity.StapledInstances {
	maxDue := now.Add(earlySendSlack)

	var staples []entity.StapledInstances
	for _, reminder := range reminders {
		var due []entity.Instance
		for _, instance := range deriveInstances(reminder.ReportDate, reminder.ReportTiming, loc) {
			if reminder.HasSent(instance.Key) || instance.DueAt.After(maxDue) {
				continue
			}
			due = append(due, instance)
		}

		if len(due) > 0 {
			staples = append(staples, entity.StapledInstances{Reminder: reminder, Instances: due})
		}
	}
	return staples
}

// lookaheadWindow is [start of today, start of today + lookaheadDays).
func lookaheadWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	start := calendar.StartOfDay(now, loc)
	return start, calendar.AddDays(start, lookaheadDays, loc)
}
