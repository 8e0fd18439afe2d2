package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_deliveryService_SendIfNeeded(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 5, 10, 9, 0, 30, 0, loc)
	windowFrom := time.Date(2024, 5, 10, 0, 0, 0, 0, loc)
	windowTo := time.Date(2024, 5, 13, 0, 0, 0, 0, loc)

	newABCD := func(channelID string, sentKeys ...string) *entity.Reminder {
		return &entity.Reminder{
			ID:           entity.ReminderID("ABCD", channelID),
			ChannelID:    channelID,
			Symbol:       "ABCD",
			ReportDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, loc),
			ReportTiming: entity.TimingAfterClose,
			SentKeys:     append([]string{}, sentKeys...),
		}
	}

	expectWindow := func(m allMocks, reminders []*entity.Reminder, err error) {
		m.mockReminderRepo.EXPECT().
			FindByReportDate(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, from, to time.Time) ([]*entity.Reminder, error) {
				assert.True(t, from.Equal(windowFrom), "from=%v", from)
				assert.True(t, to.Equal(windowTo), "to=%v", to)
				return reminders, err
			}).Times(1)
	}

	tests := []struct {
		name      string
		buildMock func(m allMocks)
		wantErr   bool
	}{
		{
			name: "Should send the morning reminder and mark it sent",
			buildMock: func(m allMocks) {
				expectWindow(m, []*entity.Reminder{newABCD("C1")}, nil)

				m.mockMessageSender.EXPECT().
					SendMessage(gomock.Any(), "C1", "*Earnings Reminders*\n*May 10, 2024 after market close*\nABCD").
					Return(nil).Times(1)

				m.mockReminderRepo.EXPECT().
					Replace(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, r *entity.Reminder) error {
						assert.Equal(t, "ABCD_C1", r.ID)
						assert.Equal(t, []string{"9am-today"}, r.SentKeys)
						assert.True(t, r.ReportDate.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, loc)))
						assert.Equal(t, entity.TimingAfterClose, r.ReportTiming)
						return nil
					}).Times(1)
			},
		},
		{
			name: "Should do nothing when every instance is already sent",
			buildMock: func(m allMocks) {
				expectWindow(m, []*entity.Reminder{newABCD("C1", "9am-today")}, nil)
			},
		},
		{
			name: "Should not mark anything when the send fails",
			buildMock: func(m allMocks) {
				expectWindow(m, []*entity.Reminder{newABCD("C1")}, nil)

				m.mockMessageSender.EXPECT().
					SendMessage(gomock.Any(), "C1", gomock.Any()).
					Return(errors.New("channel_not_found")).Times(1)
			},
		},
		{
			name: "Should return the error when eligible reminders cannot be loaded",
			buildMock: func(m allMocks) {
				expectWindow(m, nil, errors.New("database is locked"))
			},
			wantErr: true,
		},
		{
			name: "Should keep delivering to other channels when one fails",
			buildMock: func(m allMocks) {
				expectWindow(m, []*entity.Reminder{newABCD("C1"), newABCD("C2")}, nil)

				m.mockMessageSender.EXPECT().
					SendMessage(gomock.Any(), "C1", gomock.Any()).
					Return(errors.New("not_in_channel")).Times(1)
				m.mockMessageSender.EXPECT().
					SendMessage(gomock.Any(), "C2", gomock.Any()).
					Return(nil).Times(1)

				m.mockReminderRepo.EXPECT().
					Replace(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, r *entity.Reminder) error {
						assert.Equal(t, "ABCD_C2", r.ID)
						return nil
					}).Times(1)
			},
		},
		{
			name: "Should finish the cycle when marking a reminder fails",
			buildMock: func(m allMocks) {
				expectWindow(m, []*entity.Reminder{newABCD("C1")}, nil)

				m.mockMessageSender.EXPECT().
					SendMessage(gomock.Any(), "C1", gomock.Any()).
					Return(nil).Times(1)
				m.mockReminderRepo.EXPECT().
					Replace(gomock.Any(), gomock.Any()).
					Return(errors.New("disk I/O error")).Times(1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ctrl := newServiceTestMock(t)
			defer ctrl.Finish()

			tt.buildMock(m)

			s := newDelivery(m.mockDataManager, m.mockMessageSender, testOptions(loc, now))
			err := s.SendIfNeeded(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, stateIdle, s.currentState())
		})
	}
}

func Test_deliveryService_SendIfNeeded_BatchesOneMessagePerChannel(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 5, 10, 13, 0, 0, 0, loc)

	reminders := []*entity.Reminder{
		{ID: "NVDA_C1", ChannelID: "C1", Symbol: "NVDA", ReportDate: time.Date(2024, 5, 11, 0, 0, 0, 0, loc), ReportTiming: entity.TimingBeforeOpen},
		{ID: "AAPL_C1", ChannelID: "C1", Symbol: "AAPL", ReportDate: time.Date(2024, 5, 10, 0, 0, 0, 0, loc), ReportTiming: entity.TimingAfterClose, SentKeys: []string{"9am-today"}},
		{ID: "MSFT_C1", ChannelID: "C1", Symbol: "MSFT", ReportDate: time.Date(2024, 5, 11, 0, 0, 0, 0, loc), ReportTiming: entity.TimingDuringHours},
	}

	m, ctrl := newServiceTestMock(t)
	defer ctrl.Finish()

	m.mockReminderRepo.EXPECT().
		FindByReportDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(reminders, nil).Times(1)

	m.mockMessageSender.EXPECT().
		SendMessage(gomock.Any(), "C1",
			"*Earnings Reminders*\n"+
				"*May 11, 2024 before market open*\nNVDA\n"+
				"*May 11, 2024 during market hours*\nMSFT").
		Return(nil).Times(1)

	marked := make(map[string][]string)
	m.mockReminderRepo.EXPECT().
		Replace(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *entity.Reminder) error {
			marked[r.ID] = r.SentKeys
			return nil
		}).Times(2)

	s := newDelivery(m.mockDataManager, m.mockMessageSender, testOptions(loc, now))
	require.NoError(t, s.SendIfNeeded(context.Background()))

	assert.Equal(t, map[string][]string{
		"NVDA_C1": {"1pm-yesterday"},
		"MSFT_C1": {"1pm-yesterday"},
	}, marked)
}

func Test_deliveryService_SendIfNeeded_SkipsWhileSending(t *testing.T) {
	loc := newYork(t)

	m, ctrl := newServiceTestMock(t)
	defer ctrl.Finish()

	s := newDelivery(m.mockDataManager, m.mockMessageSender, testOptions(loc, time.Date(2024, 5, 10, 9, 0, 0, 0, loc)))
	require.True(t, s.begin())

	// no repository or sender calls are expected
	require.NoError(t, s.SendIfNeeded(context.Background()))
	assert.Equal(t, stateSending, s.currentState())

	s.finish()
	assert.Equal(t, stateIdle, s.currentState())
}

func Test_deliveryService_SendIfNeeded_ConcurrentCallsRunOneCycle(t *testing.T) {
	loc := newYork(t)

	m, ctrl := newServiceTestMock(t)
	defer ctrl.Finish()

	release := make(chan struct{})
	entered := make(chan struct{})

	m.mockReminderRepo.EXPECT().
		FindByReportDate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ time.Time) ([]*entity.Reminder, error) {
			close(entered)
			<-release
			return nil, nil
		}).Times(1)

	s := newDelivery(m.mockDataManager, m.mockMessageSender, testOptions(loc, time.Date(2024, 5, 10, 9, 0, 0, 0, loc)))

	done := make(chan error, 1)
	go func() { done <- s.SendIfNeeded(context.Background()) }()

	<-entered
	require.NoError(t, s.SendIfNeeded(context.Background()))
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, stateIdle, s.currentState())
}

func Test_deliveryState_String(t *testing.T) {
	assert.Equal(t, "idle", stateIdle.String())
	assert.Equal(t, "sending", stateSending.String())
}

func Test_deliveryService_SendIfNeeded_MarksSentAfterCancel(t *testing.T) {
	loc := newYork(t)
	now := time.Date(2024, 5, 10, 9, 0, 30, 0, loc)

	m, ctrl := newServiceTestMock(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.mockReminderRepo.EXPECT().
		FindByReportDate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*entity.Reminder{{
			ID:           "ABCD_C1",
			ChannelID:    "C1",
			Symbol:       "ABCD",
			ReportDate:   time.Date(2024, 5, 10, 0, 0, 0, 0, loc),
			ReportTiming: entity.TimingAfterClose,
		}}, nil).Times(1)

	// shutdown lands right after the post was accepted
	m.mockMessageSender.EXPECT().
		SendMessage(gomock.Any(), "C1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string) error {
			cancel()
			return nil
		}).Times(1)

	m.mockReminderRepo.EXPECT().
		Replace(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, r *entity.Reminder) error {
			assert.NoError(t, ctx.Err())
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			assert.Equal(t, []string{"9am-today"}, r.SentKeys)
			return nil
		}).Times(1)

	s := newDelivery(m.mockDataManager, m.mockMessageSender, testOptions(loc, now))
	require.NoError(t, s.SendIfNeeded(ctx))
	assert.Equal(t, stateIdle, s.currentState())
}
