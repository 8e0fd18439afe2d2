package scheduler

import (
	"errors"
	"slices"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/calendar"
)

// WakeClock yields the configured times of day in loc, one instant at a time,
// strictly increasing and without skipping days. It holds no state beyond the
// current floor, so a clock built from any start instant is a valid restart.
type WakeClock struct {
	loc   *time.Location
	times []calendar.ClockTime

	floor time.Time
	// inclusive is set right after rolling to a new day so that a 00:00 wake time
	// on that day is not dropped.
	inclusive bool
	pending   []time.Time
}

// NewWakeClock returns a clock whose first instant is strictly after start.
func NewWakeClock(start time.Time, loc *time.Location, times []calendar.ClockTime) (*WakeClock, error) {
	if loc == nil {
		return nil, errors.New("location must not be nil")
	}
	if len(times) == 0 {
		return nil, errors.New("at least one wake time is required")
	}

	sorted := slices.Clone(times)
	slices.SortFunc(sorted, func(a, b calendar.ClockTime) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})

	return &WakeClock{
		loc:   loc,
		times: slices.Compact(sorted),
		floor: start,
	}, nil
}

// Next returns the next wake instant and advances the clock past it.
func (w *WakeClock) Next() time.Time {
	for len(w.pending) == 0 {
		w.fill()
	}

	next := w.pending[0]
	w.pending = w.pending[1:]
	w.floor = next
	w.inclusive = false
	return next
}

// fill buffers what is left of the floor's day. When nothing is left the floor
// moves to the start of the next day, never to a time of day, so no drift builds up.
func (w *WakeClock) fill() {
	day := calendar.StartOfDay(w.floor, w.loc)

	for _, c := range w.times {
		at := calendar.At(day, c, w.loc)
		if !(at.After(w.floor) || (w.inclusive && at.Equal(w.floor))) {
			continue
		}
		// DST gaps can map two wake times onto the same instant
		if n := len(w.pending); n > 0 && !at.After(w.pending[n-1]) {
			continue
		}
		w.pending = append(w.pending, at)
	}

	w.inclusive = false
	if len(w.pending) == 0 {
		w.floor = calendar.AddDays(day, 1, w.loc)
		w.inclusive = true
	}
}
