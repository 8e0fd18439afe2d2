package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type deliveryState int

const (
	stateIdle deliveryState = iota
	stateSending
)

func (s deliveryState) String() string {
	if s == stateSending {
		return "sending"
	}
	return "idle"
}

type deliveryService struct {
	dm          contract.DataManager
	sender      contract.MessageSender
	loc         *time.Location
	callTimeout time.Duration
	maxSends    int
	now         func() time.Time

	mu    sync.Mutex
	state deliveryState
}

func newDelivery(dm contract.DataManager, sender contract.MessageSender, opts Options) *deliveryService {
	return &deliveryService{
		dm:          dm,
		sender:      sender,
		loc:         opts.Location,
		callTimeout: opts.CallTimeout,
		maxSends:    opts.MaxConcurrentSends,
		now:         opts.Now,
		state:       stateIdle,
	}
}

// begin moves idle -> sending. It reports false when a cycle is already running.
func (s *deliveryService) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return false
	}
	s.state = stateSending
	return true
}

func (s *deliveryService) finish() {
	s.mu.Lock()
	s.state = stateIdle
	s.mu.Unlock()
}

func (s *deliveryService) currentState() deliveryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SendIfNeeded runs one delivery cycle. A call made while another cycle is in
// flight returns nil without doing anything; the next wake tick picks up the work.
// Only a failure to load eligible reminders is returned, per-channel failures are logged.
func (s *deliveryService) SendIfNeeded(ctx context.Context) error {
	if !s.begin() {
		slog.Debug("delivery cycle already in flight, skipping")
		return nil
	}
	defer s.finish()

	logger := slog.With("cycle_id", uuid.NewString())

	staples, err := s.eligible(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to load eligible reminders: %w", err)
	}

	if len(staples) == 0 {
		logger.Debug("no reminders due")
		return nil
	}

	plans := batch(staples, s.loc)
	logger.Info("delivering reminders", "reminders", len(staples), "channels", len(plans))

	g := new(errgroup.Group)
	if s.maxSends > 0 {
		g.SetLimit(s.maxSends)
	}

	for _, plan := range plans {
		g.Go(func() error {
			if err := s.deliver(ctx, plan); err != nil {
				logger.Error("failed to deliver reminders", "channel_id", plan.channelID, "error", err)
				return nil
			}
			logger.Info("reminders delivered", "channel_id", plan.channelID, "sections", len(plan.sections))
			return nil
		})
	}
	_ = g.Wait()

	return nil
}

func (s *deliveryService) eligible(ctx context.Context, now time.Time) ([]entity.StapledInstances, error) {
	from, to := lookaheadWindow(now, s.loc)

	queryCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	reminders, err := s.dm.Reminder().FindByReportDate(queryCtx, from, to)
	if err != nil {
		return nil, err
	}

	return dueInstances(reminders, now, s.loc), nil
}

// deliver sends one channel's message and then marks its instances sent.
// A failed send leaves SentKeys alone so the instances are retried next cycle.
func (s *deliveryService) deliver(ctx context.Context, plan channelPlan) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	err := s.sender.SendMessage(sendCtx, plan.channelID, plan.render())
	cancel()
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	// the message is out, so record it even if the cycle is being cancelled
	markCtx := context.WithoutCancel(ctx)

	var errs []error
	for _, reminder := range plan.sentReminders() {
		updateCtx, cancel := context.WithTimeout(markCtx, s.callTimeout)
		err := s.dm.Reminder().Replace(updateCtx, reminder)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to mark reminder %s as sent: %w", reminder.ID, err))
		}
	}
	return errors.Join(errs...)
}
