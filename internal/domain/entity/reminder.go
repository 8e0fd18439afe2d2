package entity

import (
	"slices"
	"strings"
	"time"
)

// Reminder is one channel's subscription to a symbol's next earnings report.
// A channel holds at most one reminder per symbol: ID is derived from both.
type Reminder struct {
	ID           string
	ChannelID    string
	Symbol       string
	ReportDate   time.Time
	ReportTiming ReportTiming
	CreatedAt    time.Time

	// SentKeys holds the instance keys already delivered, sorted and unique.
	SentKeys []string
}

// NewReminder builds a reminder with its derived ID. symbol must already be normalized.
func NewReminder(channelID, symbol string, reportDate time.Time, timing ReportTiming, createdAt time.Time) *Reminder {
	return &Reminder{
		ID:           ReminderID(symbol, channelID),
		ChannelID:    channelID,
		Symbol:       symbol,
		ReportDate:   reportDate,
		ReportTiming: timing,
		CreatedAt:    createdAt,
		SentKeys:     []string{},
	}
}

// ReminderID joins symbol and channel with "_", which neither may contain.
func ReminderID(symbol, channelID string) string {
	return symbol + "_" + channelID
}

// NormalizeSymbol trims and uppercases a ticker, rejecting anything that is not
// letters, digits, '.' or '-'.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || len(s) > 12 {
		return "", ErrInvalidSymbol
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			return "", ErrInvalidSymbol
		}
	}
	return s, nil
}

func (r *Reminder) HasSent(key string) bool {
	_, found := slices.BinarySearch(r.SentKeys, key)
	return found
}

// WithSentKeys returns a copy of r whose SentKeys is the union of the existing keys and keys.
func (r *Reminder) WithSentKeys(keys ...string) *Reminder {
	merged := make([]string, 0, len(r.SentKeys)+len(keys))
	merged = append(merged, r.SentKeys...)
	merged = append(merged, keys...)
	slices.Sort(merged)

	cp := *r
	cp.SentKeys = slices.Compact(merged)
	return &cp
}

// Instance is a single send occurrence of a reminder.
type Instance struct {
	Key   string
	DueAt time.Time
}

// StapledInstances pairs a reminder with the instances due for it in one delivery pass.
type StapledInstances struct {
	Reminder  *Reminder
	Instances []Instance
}

func (s StapledInstances) Keys() []string {
	keys := make([]string, 0, len(s.Instances))
	for _, instance := range s.Instances {
		keys = append(keys, instance.Key)
	}
	return keys
}

// EarningsReport is the next scheduled report for a symbol.
type EarningsReport struct {
	Symbol string
	Date   time.Time
	Timing ReportTiming
}
