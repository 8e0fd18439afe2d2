package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/calendar"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 6 * time.Hour

// EarningsCache is a read-through cache in front of an EarningsClient.
// Redis failures are logged and fall through to the upstream lookup.
type EarningsCache struct {
	rdb  *redis.Client
	next contract.EarningsClient
	ttl  time.Duration
	loc  *time.Location
}

func NewEarningsCache(rdb *redis.Client, next contract.EarningsClient, ttl time.Duration, loc *time.Location) *EarningsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EarningsCache{rdb: rdb, next: next, ttl: ttl, loc: loc}
}

// reportValue also records misses so unknown symbols do not hit the API on every command.
type reportValue struct {
	Found  bool   `json:"found"`
	Date   string `json:"date,omitempty"`
	Timing string `json:"timing,omitempty"`
}

func (c *EarningsCache) NextReport(ctx context.Context, symbol string, after time.Time) (*entity.EarningsReport, error) {
	key := c.key(symbol, after)

	if report, ok := c.get(ctx, key, symbol); ok {
		return report, nil
	}

	report, err := c.next.NextReport(ctx, symbol, after)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, report)
	return report, nil
}

func (c *EarningsCache) key(symbol string, after time.Time) string {
	return fmt.Sprintf("earnings:%s:%s", symbol, calendar.StartOfDay(after, c.loc).Format(time.DateOnly))
}

func (c *EarningsCache) get(ctx context.Context, key, symbol string) (*entity.EarningsReport, bool) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("earnings cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var val reportValue
	if err := json.Unmarshal(b, &val); err != nil {
		slog.Warn("earnings cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}

	if !val.Found {
		return nil, true
	}

	date, err := time.ParseInLocation(time.DateOnly, val.Date, c.loc)
	if err != nil {
		slog.Warn("earnings cache entry has an invalid date", "key", key, "error", err)
		return nil, false
	}

	return &entity.EarningsReport{
		Symbol: symbol,
		Date:   date,
		Timing: entity.ParseReportTiming(val.Timing),
	}, true
}

func (c *EarningsCache) store(ctx context.Context, key string, report *entity.EarningsReport) {
	val := reportValue{Found: report != nil}
	if report != nil {
		val.Date = report.Date.In(c.loc).Format(time.DateOnly)
		val.Timing = string(report.Timing)
	}

	b, err := json.Marshal(val)
	if err != nil {
		slog.Warn("failed to encode earnings cache entry", "key", key, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		slog.Warn("earnings cache write failed", "key", key, "error", err)
	}
}
