package entity

import "strings"

// ReportTiming is when in the trading day a company reports.
type ReportTiming string

const (
	TimingBeforeOpen  ReportTiming = "bmo"
	TimingDuringHours ReportTiming = "dmh"
	TimingAfterClose  ReportTiming = "amc"
	TimingUnknown     ReportTiming = "unknown"
)

// ParseReportTiming maps an upstream category onto the closed set; anything
// unrecognized becomes TimingUnknown.
func ParseReportTiming(value string) ReportTiming {
	switch ReportTiming(strings.ToLower(strings.TrimSpace(value))) {
	case TimingBeforeOpen:
		return TimingBeforeOpen
	case TimingDuringHours:
		return TimingDuringHours
	case TimingAfterClose:
		return TimingAfterClose
	default:
		return TimingUnknown
	}
}

func (t ReportTiming) Known() bool {
	return t == TimingBeforeOpen || t == TimingDuringHours || t == TimingAfterClose
}

// Order follows the trading day, not declaration order: before open < during hours < after close.
func (t ReportTiming) Order() int {
	switch t {
	case TimingBeforeOpen:
		return 0
	case TimingDuringHours:
		return 1
	case TimingAfterClose:
		return 2
	default:
		return 3
	}
}

// Phrase is empty for TimingUnknown.
func (t ReportTiming) Phrase() string {
	switch t {
	case TimingBeforeOpen:
		return "before market open"
	case TimingDuringHours:
		return "during market hours"
	case TimingAfterClose:
		return "after market close"
	default:
		return ""
	}
}
