// Package finnhub looks up earnings calendars from https://finnhub.io.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/calendar"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
)

const (
	DefaultBaseURL = "https://finnhub.io/api/v1"

	defaultTimeout = 30 * time.Second
	// a calendar for one symbol is well under 1 KiB
	maxBodyBytes    = 32 << 10
	lookaheadMonths = 3
)

// StatusError is returned for responses outside 2xx/3xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("finnhub: unexpected status code %d body=%q", e.StatusCode, e.Body)
}

// Event is one entry of the earnings calendar.
type Event struct {
	Date            time.Time
	Hour            string
	Symbol          string
	Quarter         int
	Year            int
	EPSEstimate     *float64
	EPSActual       *float64
	RevenueEstimate *float64
	RevenueActual   *float64
}

type calendarResponse struct {
	EarningsCalendar []eventResponse `json:"earningsCalendar"`
}

type eventResponse struct {
	Date            string   `json:"date"`
	Hour            string   `json:"hour"`
	Symbol          string   `json:"symbol"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
	EPSEstimate     *float64 `json:"epsEstimate"`
	EPSActual       *float64 `json:"epsActual"`
	RevenueEstimate *float64 `json:"revenueEstimate"`
	RevenueActual   *float64 `json:"revenueActual"`
}

type Client struct {
	baseURL string
	apiKey  string
	loc     *time.Location
	client  *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient builds a client whose calendar dates are interpreted in loc.
func NewClient(apiKey string, loc *time.Location, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		loc:     loc,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EarningsCalendar returns the symbol's events between from and to, both inclusive dates.
func (c *Client) EarningsCalendar(ctx context.Context, symbol string, from, to time.Time) ([]Event, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("from", from.In(c.loc).Format(time.DateOnly))
	query.Set("to", to.In(c.loc).Format(time.DateOnly))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/calendar/earnings?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Finnhub-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call finnhub: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read finnhub response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("finnhub response exceeds %d bytes", maxBodyBytes)
	}

	var cr calendarResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w body=%q", err, truncate(string(body), 256))
	}

	events := make([]Event, 0, len(cr.EarningsCalendar))
	for _, e := range cr.EarningsCalendar {
		date, err := time.ParseInLocation(time.DateOnly, e.Date, c.loc)
		if err != nil {
			return nil, fmt.Errorf("invalid earnings date %q for %s: %w", e.Date, e.Symbol, err)
		}
		events = append(events, Event{
			Date:            date,
			Hour:            e.Hour,
			Symbol:          e.Symbol,
			Quarter:         e.Quarter,
			Year:            e.Year,
			EPSEstimate:     e.EPSEstimate,
			EPSActual:       e.EPSActual,
			RevenueEstimate: e.RevenueEstimate,
			RevenueActual:   e.RevenueActual,
		})
	}
	return events, nil
}

// NextReport returns the earliest report on or after the day of after, looking one
// quarter ahead. It returns nil, nil when nothing is scheduled.
func (c *Client) NextReport(ctx context.Context, symbol string, after time.Time) (*entity.EarningsReport, error) {
	from := calendar.StartOfDay(after, c.loc)
	to := from.AddDate(0, lookaheadMonths, 0)

	events, err := c.EarningsCalendar(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	upcoming := events[:0]
	for _, e := range events {
		if !e.Date.Before(from) {
			upcoming = append(upcoming, e)
		}
	}
	if len(upcoming) == 0 {
		return nil, nil
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Date.Before(upcoming[j].Date)
	})

	next := upcoming[0]
	return &entity.EarningsReport{
		Symbol: symbol,
		Date:   next.Date,
		Timing: entity.ParseReportTiming(next.Hour),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
