package service

import (
	"sort"
	"strings"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
)

const (
	messageTitle      = "Earnings Reminders"
	headingDateLayout = "January 2, 2006"
)

type binKey struct {
	year   int
	month  time.Month
	day    int
	timing entity.ReportTiming
}

func (k binKey) less(other binKey) bool {
	if k.year != other.year {
		return k.year < other.year
	}
	if k.month != other.month {
		return k.month < other.month
	}
	if k.day != other.day {
		return k.day < other.day
	}
	return k.timing.Order() < other.timing.Order()
}

// messageSection is one (report date, timing) bin of a channel's message.
type messageSection struct {
	key     binKey
	date    time.Time
	staples []entity.StapledInstances
}

// channelPlan is everything one channel receives in a delivery cycle, in message order.
type channelPlan struct {
	channelID string
	sections  []messageSection
}

// batch groups staples by channel and bin. Sections are ordered by report date,
// then before open < during hours < after close. Plans are ordered by channel ID.
func batch(staples []entity.StapledInstances, loc *time.Location) []channelPlan {
	bins := make(map[string]map[binKey]*messageSection)

	for _, staple := range staples {
		reminder := staple.Reminder
		if reminder == nil || reminder.ReportDate.IsZero() {
			continue
		}

		local := reminder.ReportDate.In(loc)
		y, m, d := local.Date()
		key := binKey{year: y, month: m, day: d, timing: reminder.ReportTiming}

		channelBins, ok := bins[reminder.ChannelID]
		if !ok {
			channelBins = make(map[binKey]*messageSection)
			bins[reminder.ChannelID] = channelBins
		}

		section, ok := channelBins[key]
		if !ok {
			section = &messageSection{key: key, date: time.Date(y, m, d, 0, 0, 0, 0, loc)}
			channelBins[key] = section
		}
		section.staples = append(section.staples, staple)
	}

	plans := make([]channelPlan, 0, len(bins))
	for channelID, channelBins := range bins {
		plan := channelPlan{channelID: channelID}
		for _, section := range channelBins {
			sort.Slice(section.staples, func(i, j int) bool {
				return section.staples[i].Reminder.Symbol < section.staples[j].Reminder.Symbol
			})
			plan.sections = append(plan.sections, *section)
		}
		sort.Slice(plan.sections, func(i, j int) bool {
			return plan.sections[i].key.less(plan.sections[j].key)
		})
		plans = append(plans, plan)
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].channelID < plans[j].channelID
	})
	return plans
}

// render builds the Slack mrkdwn text for the plan.
func (p channelPlan) render() string {
	var b strings.Builder
	b.WriteString("*" + messageTitle + "*")

	for _, section := range p.sections {
		b.WriteString("\n*")
		b.WriteString(section.heading())
		b.WriteString("*\n")

		symbols := make([]string, 0, len(section.staples))
		for _, staple := range section.staples {
			symbols = append(symbols, staple.Reminder.Symbol)
		}
		b.WriteString(joinSymbols(symbols))
	}
	return b.String()
}

func (s messageSection) heading() string {
	heading := s.date.Format(headingDateLayout)
	if phrase := s.key.timing.Phrase(); phrase != "" {
		heading += " " + phrase
	}
	return heading
}

// sentReminders returns a copy of every reminder in the plan with the keys
// delivered by this plan merged into SentKeys.
func (p channelPlan) sentReminders() []*entity.Reminder {
	var out []*entity.Reminder
	index := make(map[string]int)

	for _, section := range p.sections {
		for _, staple := range section.staples {
			if i, ok := index[staple.Reminder.ID]; ok {
				out[i] = out[i].WithSentKeys(staple.Keys()...)
				continue
			}
			index[staple.Reminder.ID] = len(out)
			out = append(out, staple.Reminder.WithSentKeys(staple.Keys()...))
		}
	}
	return out
}

// joinSymbols formats an English conjunctive list: "A", "A and B", "A, B, and C".
func joinSymbols(symbols []string) string {
	switch len(symbols) {
	case 0:
		return ""
	case 1:
		return symbols[0]
	case 2:
		return symbols[0] + " and " + symbols[1]
	default:
		return strings.Join(symbols[:len(symbols)-1], ", ") + ", and " + symbols[len(symbols)-1]
	}
}
