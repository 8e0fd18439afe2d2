package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		want    string
		wantErr error
	}{
		{name: "Should uppercase and trim", symbol: "  aapl ", want: "AAPL"},
		{name: "Should accept class shares", symbol: "brk.b", want: "BRK.B"},
		{name: "Should reject empty", symbol: "   ", wantErr: ErrInvalidSymbol},
		{name: "Should reject underscore", symbol: "AB_CD", wantErr: ErrInvalidSymbol},
		{name: "Should reject inner space", symbol: "AB CD", wantErr: ErrInvalidSymbol},
		{name: "Should reject very long input", symbol: "ABCDEFGHIJKLM", wantErr: ErrInvalidSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSymbol(tt.symbol)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewReminder(t *testing.T) {
	reportDate := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	r := NewReminder("C123", "ABCD", reportDate, TimingAfterClose, createdAt)

	assert.Equal(t, "ABCD_C123", r.ID)
	assert.Equal(t, "C123", r.ChannelID)
	assert.Equal(t, reportDate, r.ReportDate)
	assert.Equal(t, TimingAfterClose, r.ReportTiming)
	assert.Empty(t, r.SentKeys)
}

func TestReminder_WithSentKeys(t *testing.T) {
	r := &Reminder{ID: "ABCD_C1", SentKeys: []string{"9am-today"}}

	merged := r.WithSentKeys("3pm-today", "9am-today")

	assert.Equal(t, []string{"3pm-today", "9am-today"}, merged.SentKeys)
	assert.True(t, merged.HasSent("3pm-today"))
	assert.True(t, merged.HasSent("9am-today"))
	assert.False(t, merged.HasSent("1pm-yesterday"))

	// the original is left untouched
	assert.Equal(t, []string{"9am-today"}, r.SentKeys)
	assert.False(t, r.HasSent("3pm-today"))
}

func TestParseReportTiming(t *testing.T) {
	assert.Equal(t, TimingBeforeOpen, ParseReportTiming("bmo"))
	assert.Equal(t, TimingAfterClose, ParseReportTiming(" AMC "))
	assert.Equal(t, TimingDuringHours, ParseReportTiming("dmh"))
	assert.Equal(t, TimingUnknown, ParseReportTiming(""))
	assert.Equal(t, TimingUnknown, ParseReportTiming("tbd"))
}

func TestReportTiming_Order(t *testing.T) {
	assert.Less(t, TimingBeforeOpen.Order(), TimingDuringHours.Order())
	assert.Less(t, TimingDuringHours.Order(), TimingAfterClose.Order())
	assert.Less(t, TimingAfterClose.Order(), TimingUnknown.Order())
}

func TestReportTiming_Phrase(t *testing.T) {
	assert.Equal(t, "before market open", TimingBeforeOpen.Phrase())
	assert.Equal(t, "during market hours", TimingDuringHours.Phrase())
	assert.Equal(t, "after market close", TimingAfterClose.Phrase())
	assert.Empty(t, TimingUnknown.Phrase())
	assert.False(t, TimingUnknown.Known())
}
