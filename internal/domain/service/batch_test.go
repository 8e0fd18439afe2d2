package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staple(loc *time.Location, channelID, symbol string, day int, timing entity.ReportTiming, keys ...string) entity.StapledInstances {
	instances := make([]entity.Instance, 0, len(keys))
	for _, key := range keys {
		instances = append(instances, entity.Instance{Key: key})
	}
	return entity.StapledInstances{
		Reminder: &entity.Reminder{
			ID:           entity.ReminderID(symbol, channelID),
			ChannelID:    channelID,
			Symbol:       symbol,
			ReportDate:   time.Date(2024, 5, day, 0, 0, 0, 0, loc),
			ReportTiming: timing,
			SentKeys:     []string{},
		},
		Instances: instances,
	}
}

func Test_batch(t *testing.T) {
	loc := newYork(t)

	staples := []entity.StapledInstances{
		staple(loc, "C2", "ZZZ", 10, entity.TimingAfterClose, "9am-today"),
		staple(loc, "C1", "MSFT", 11, entity.TimingBeforeOpen, "1pm-yesterday"),
		staple(loc, "C1", "ABCD", 10, entity.TimingAfterClose, "9am-today"),
		staple(loc, "C1", "TSLA", 10, entity.TimingBeforeOpen, "1pm-yesterday"),
		staple(loc, "C1", "AAPL", 10, entity.TimingAfterClose, "9am-today"),
		staple(loc, "C1", "NVDA", 10, entity.TimingDuringHours, "9am-today"),
	}

	plans := batch(staples, loc)
	require.Len(t, plans, 2)

	assert.Equal(t, "C1", plans[0].channelID)
	assert.Equal(t, "C2", plans[1].channelID)

	type section struct {
		heading string
		symbols []string
	}
	var got []section
	for _, s := range plans[0].sections {
		var symbols []string
		for _, st := range s.staples {
			symbols = append(symbols, st.Reminder.Symbol)
		}
		got = append(got, section{heading: s.heading(), symbols: symbols})
	}

	assert.Equal(t, []section{
		{heading: "May 10, 2024 before market open", symbols: []string{"TSLA"}},
		{heading: "May 10, 2024 during market hours", symbols: []string{"NVDA"}},
		{heading: "May 10, 2024 after market close", symbols: []string{"AAPL", "ABCD"}},
		{heading: "May 11, 2024 before market open", symbols: []string{"MSFT"}},
	}, got)
}

func Test_batch_IsDeterministic(t *testing.T) {
	loc := newYork(t)

	staples := []entity.StapledInstances{
		staple(loc, "C1", "AAPL", 10, entity.TimingAfterClose, "9am-today"),
		staple(loc, "C1", "ABCD", 10, entity.TimingAfterClose, "9am-today"),
		staple(loc, "C1", "EFGH", 10, entity.TimingUnknown, "9am-today"),
		staple(loc, "C2", "IJKL", 11, entity.TimingBeforeOpen, "1pm-yesterday"),
		staple(loc, "C3", "MNOP", 12, entity.TimingDuringHours, "1pm-yesterday"),
	}

	want := batch(staples, loc)
	wantText := make([]string, 0, len(want))
	for _, plan := range want {
		wantText = append(wantText, plan.render())
	}

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]entity.StapledInstances(nil), staples...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		plans := batch(shuffled, loc)
		gotText := make([]string, 0, len(plans))
		for _, plan := range plans {
			gotText = append(gotText, plan.render())
		}
		assert.Equal(t, wantText, gotText)
	}
}

func Test_batch_SkipsRemindersWithoutDate(t *testing.T) {
	loc := newYork(t)

	broken := staple(loc, "C1", "ABCD", 10, entity.TimingAfterClose, "9am-today")
	broken.Reminder.ReportDate = time.Time{}

	plans := batch([]entity.StapledInstances{
		broken,
		{Reminder: nil},
		staple(loc, "C1", "EFGH", 10, entity.TimingAfterClose, "9am-today"),
	}, loc)

	require.Len(t, plans, 1)
	require.Len(t, plans[0].sections, 1)
	require.Len(t, plans[0].sections[0].staples, 1)
	assert.Equal(t, "EFGH", plans[0].sections[0].staples[0].Reminder.Symbol)
}

func Test_channelPlan_render(t *testing.T) {
	loc := newYork(t)

	tests := []struct {
		name    string
		staples []entity.StapledInstances
		want    string
	}{
		{
			name: "Should render a single symbol",
			staples: []entity.StapledInstances{
				staple(loc, "C1", "ABCD", 10, entity.TimingAfterClose, "9am-today"),
			},
			want: "*Earnings Reminders*\n*May 10, 2024 after market close*\nABCD",
		},
		{
			name: "Should render several sections with joined symbols",
			staples: []entity.StapledInstances{
				staple(loc, "C1", "CCC", 10, entity.TimingAfterClose, "9am-today"),
				staple(loc, "C1", "AAA", 10, entity.TimingAfterClose, "9am-today"),
				staple(loc, "C1", "BBB", 10, entity.TimingAfterClose, "9am-today"),
				staple(loc, "C1", "DDD", 11, entity.TimingBeforeOpen, "1pm-yesterday"),
				staple(loc, "C1", "EEE", 11, entity.TimingBeforeOpen, "1pm-yesterday"),
			},
			want: "*Earnings Reminders*\n" +
				"*May 10, 2024 after market close*\nAAA, BBB, and CCC\n" +
				"*May 11, 2024 before market open*\nDDD and EEE",
		},
		{
			name: "Should omit the timing phrase when timing is unknown",
			staples: []entity.StapledInstances{
				staple(loc, "C1", "ABCD", 10, entity.TimingUnknown, "9am-today"),
			},
			want: "*Earnings Reminders*\n*May 10, 2024*\nABCD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plans := batch(tt.staples, loc)
			require.Len(t, plans, 1)
			assert.Equal(t, tt.want, plans[0].render())
		})
	}
}

func Test_joinSymbols(t *testing.T) {
	tests := []struct {
		symbols []string
		want    string
	}{
		{symbols: nil, want: ""},
		{symbols: []string{"A"}, want: "A"},
		{symbols: []string{"A", "B"}, want: "A and B"},
		{symbols: []string{"A", "B", "C"}, want: "A, B, and C"},
		{symbols: []string{"A", "B", "C", "D"}, want: "A, B, C, and D"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, joinSymbols(tt.symbols))
		})
	}
}

func Test_channelPlan_sentReminders(t *testing.T) {
	loc := newYork(t)

	first := staple(loc, "C1", "ABCD", 10, entity.TimingAfterClose, "9am-today", "3pm-today")
	first.Reminder.SentKeys = []string{"1pm-yesterday"}
	second := staple(loc, "C1", "EFGH", 11, entity.TimingBeforeOpen, "1pm-yesterday")

	plans := batch([]entity.StapledInstances{first, second}, loc)
	require.Len(t, plans, 1)

	sent := plans[0].sentReminders()
	require.Len(t, sent, 2)

	assert.Equal(t, "ABCD_C1", sent[0].ID)
	assert.Equal(t, []string{"1pm-yesterday", "3pm-today", "9am-today"}, sent[0].SentKeys)
	assert.Equal(t, "EFGH_C1", sent[1].ID)
	assert.Equal(t, []string{"1pm-yesterday"}, sent[1].SentKeys)

	// the loaded reminder is left untouched
	assert.Equal(t, []string{"1pm-yesterday"}, first.Reminder.SentKeys)
}
