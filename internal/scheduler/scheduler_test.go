package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// stepWake wakes a fixed duration after each request.
type stepWake struct {
	step time.Duration
}

func (w stepWake) Next() time.Time {
	return time.Now().Add(w.step)
}

// fixedWake replays instants, then falls back to far in the future.
type fixedWake struct {
	instants []time.Time
}

func (w *fixedWake) Next() time.Time {
	if len(w.instants) == 0 {
		return time.Now().Add(time.Hour)
	}
	next := w.instants[0]
	w.instants = w.instants[1:]
	return next
}

func waitForAtLeast(t *testing.T, counter *atomic.Int64, want int64, timeout time.Duration) {
	t.Helper()

	require.Eventually(t, func() bool {
		return counter.Load() >= want
	}, timeout, 5*time.Millisecond)
}

func TestNew_InvalidArgs(t *testing.T) {
	ctrl := gomock.NewController(t)
	reminders := mocks.NewMockReminderService(ctrl)
	delivery := mocks.NewMockDeliveryService(ctrl)
	wake := stepWake{step: time.Second}

	tests := []struct {
		name  string
		build func() (*Scheduler, error)
	}{
		{name: "Should require a reminder service", build: func() (*Scheduler, error) { return New(nil, delivery, wake) }},
		{name: "Should require a delivery service", build: func() (*Scheduler, error) { return New(reminders, nil, wake) }},
		{name: "Should require a wake source", build: func() (*Scheduler, error) { return New(reminders, delivery, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.build()
			assert.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	reminders := mocks.NewMockReminderService(ctrl)
	delivery := mocks.NewMockDeliveryService(ctrl)

	var sends atomic.Int64
	delivery.EXPECT().SendIfNeeded(gomock.Any()).DoAndReturn(func(context.Context) error {
		sends.Add(1)
		return nil
	}).AnyTimes()
	reminders.EXPECT().Prune(gomock.Any()).Return(int64(0), nil).AnyTimes()

	s, err := New(reminders, delivery, stepWake{step: 10 * time.Millisecond})
	require.NoError(t, err)

	assert.False(t, s.IsRunning())
	assert.True(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.Start())

	waitForAtLeast(t, &sends, 3, time.Second)

	assert.True(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.False(t, s.Stop())

	// restart works after a stop
	assert.True(t, s.Start())
	assert.True(t, s.Stop())
}

func TestScheduler_RunsImmediatelyWithoutPruning(t *testing.T) {
	ctrl := gomock.NewController(t)
	reminders := mocks.NewMockReminderService(ctrl)
	delivery := mocks.NewMockDeliveryService(ctrl)

	var sends atomic.Int64
	delivery.EXPECT().SendIfNeeded(gomock.Any()).DoAndReturn(func(context.Context) error {
		sends.Add(1)
		return nil
	}).Times(1)

	s, err := New(reminders, delivery, stepWake{step: time.Hour})
	require.NoError(t, err)

	require.True(t, s.Start())
	waitForAtLeast(t, &sends, 1, time.Second)
	require.True(t, s.Stop())
}

func TestScheduler_TickPrunesBeforeDelivering(t *testing.T) {
	ctrl := gomock.NewController(t)
	reminders := mocks.NewMockReminderService(ctrl)
	delivery := mocks.NewMockDeliveryService(ctrl)

	var sends atomic.Int64
	startup := delivery.EXPECT().SendIfNeeded(gomock.Any()).Return(nil).Times(1)
	prune := reminders.EXPECT().Prune(gomock.Any()).Return(int64(2), nil).Times(1).After(startup)
	delivery.EXPECT().SendIfNeeded(gomock.Any()).DoAndReturn(func(context.Context) error {
		sends.Add(1)
		return nil
	}).Times(1).After(prune)

	wake := &fixedWake{instants: []time.Time{time.Now().Add(20 * time.Millisecond)}}
	s, err := New(reminders, delivery, wake)
	require.NoError(t, err)

	require.True(t, s.Start())
	waitForAtLeast(t, &sends, 1, time.Second)
	require.True(t, s.Stop())
}

func TestScheduler_KeepsRunningAfterFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	reminders := mocks.NewMockReminderService(ctrl)
	delivery := mocks.NewMockDeliveryService(ctrl)

	var sends atomic.Int64
	delivery.EXPECT().SendIfNeeded(gomock.Any()).DoAndReturn(func(context.Context) error {
		switch sends.Add(1) {
		case 1:
			panic("boom")
		case 2:
			return errors.New("database is locked")
		default:
			return nil
		}
	}).AnyTimes()
	reminders.EXPECT().Prune(gomock.Any()).Return(int64(0), errors.New("database is locked")).AnyTimes()

	s, err := New(reminders, delivery, stepWake{step: 10 * time.Millisecond})
	require.NoError(t, err)

	require.True(t, s.Start())
	waitForAtLeast(t, &sends, 4, time.Second)
	require.True(t, s.Stop())
}

func TestScheduler_SkipsStaleWakes(t *testing.T) {
	ctrl := gomock.NewController(t)
	reminders := mocks.NewMockReminderService(ctrl)
	delivery := mocks.NewMockDeliveryService(ctrl)

	var sends atomic.Int64
	delivery.EXPECT().SendIfNeeded(gomock.Any()).DoAndReturn(func(context.Context) error {
		sends.Add(1)
		return nil
	}).Times(2)
	reminders.EXPECT().Prune(gomock.Any()).Return(int64(0), nil).Times(1)

	now := time.Now()
	wake := &fixedWake{instants: []time.Time{
		now.Add(-2 * time.Hour),
		now.Add(-time.Hour),
		now.Add(20 * time.Millisecond),
	}}
	s, err := New(reminders, delivery, wake)
	require.NoError(t, err)

	require.True(t, s.Start())
	waitForAtLeast(t, &sends, 2, time.Second)
	require.True(t, s.Stop())
}

func TestScheduler_StopCancelsInFlightCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	reminders := mocks.NewMockReminderService(ctrl)
	delivery := mocks.NewMockDeliveryService(ctrl)

	entered := make(chan struct{})
	delivery.EXPECT().SendIfNeeded(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}).Times(1)

	s, err := New(reminders, delivery, stepWake{step: time.Hour})
	require.NoError(t, err)

	require.True(t, s.Start())
	<-entered

	stopped := make(chan bool, 1)
	go func() { stopped <- s.Stop() }()

	select {
	case ok := <-stopped:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
