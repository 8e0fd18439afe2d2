package service

import (
	"testing"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type allMocks struct {
	mockDataManager    *mocks.MockDataManager
	mockReminderRepo   *mocks.MockReminderRepo
	mockMessageSender  *mocks.MockMessageSender
	mockEarningsClient *mocks.MockEarningsClient
}

func newServiceTestMock(t *testing.T) (m allMocks, ctrl *gomock.Controller) {
	t.Helper()

	ctrl = gomock.NewController(t)

	dm := mocks.NewMockDataManager(ctrl)

	reminderRepo := mocks.NewMockReminderRepo(ctrl)
	dm.EXPECT().Reminder().Return(reminderRepo).AnyTimes()

	m = allMocks{
		mockDataManager:    dm,
		mockReminderRepo:   reminderRepo,
		mockMessageSender:  mocks.NewMockMessageSender(ctrl),
		mockEarningsClient: mocks.NewMockEarningsClient(ctrl),
	}

	return
}

func newYork(t *testing.T) *time.Location {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func testOptions(loc *time.Location, now time.Time) Options {
	return Options{
		Location: loc,
		Now:      func() time.Time { return now },
	}.withDefaults()
}
