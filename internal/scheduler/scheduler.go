package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
)

// WakeSource hands out the instants the scheduler wakes at.
type WakeSource interface {
	Next() time.Time
}

// Scheduler runs a delivery cycle once on start and then, at every wake instant,
// prunes expired reminders and runs another cycle.
type Scheduler struct {
	reminders contract.ReminderService
	delivery  contract.DeliveryService
	wake      WakeSource
	now       func() time.Time

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(reminders contract.ReminderService, delivery contract.DeliveryService, wake WakeSource) (*Scheduler, error) {
	if reminders == nil {
		return nil, errors.New("reminder service must not be nil")
	}
	if delivery == nil {
		return nil, errors.New("delivery service must not be nil")
	}
	if wake == nil {
		return nil, errors.New("wake source must not be nil")
	}

	return &Scheduler{
		reminders: reminders,
		delivery:  delivery,
		wake:      wake,
		now:       time.Now,
		done:      make(chan struct{}),
	}, nil
}

// Start launches the loop. It returns false if the scheduler is already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go s.loop(ctx)

	return true
}

// Stop cancels the loop and waits for the current cycle to return.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	slog.Info("scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	slog.Info("scheduler started")

	// catch up on anything that came due while the process was down
	s.safeRun(ctx, s.deliver)

	for {
		next := s.nextWake()
		slog.Info("next wake scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("scheduler stopping")
			return
		case <-timer.C:
			s.safeRun(ctx, s.tick)
		}
	}
}

// nextWake skips wake instants that already passed, e.g. after the host slept.
// The work they would have done stays eligible for the next cycle.
func (s *Scheduler) nextWake() time.Time {
	now := s.now()
	next := s.wake.Next()
	for !next.After(now) {
		slog.Debug("skipping stale wake", "at", next.Format(time.RFC3339))
		next = s.wake.Next()
	}
	return next
}

func (s *Scheduler) tick(ctx context.Context) {
	deleted, err := s.reminders.Prune(ctx)
	if err != nil {
		slog.Error("failed to prune reminders", "error", err)
	} else if deleted > 0 {
		slog.Info("pruned expired reminders", "deleted", deleted)
	}

	s.deliver(ctx)
}

func (s *Scheduler) deliver(ctx context.Context) {
	if err := s.delivery.SendIfNeeded(ctx); err != nil {
		slog.Error("delivery cycle failed", "error", err)
	}
}

func (s *Scheduler) safeRun(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler tick panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	fn(ctx)
	slog.Info("scheduler tick completed", "duration_ms", time.Since(start).Milliseconds())
}
