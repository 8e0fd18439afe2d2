package contract

import (
	"context"
	"time"

	"github.com/diegoclair/earnings-reminder-bot/internal/domain/entity"
)

// EarningsClient looks up scheduled earnings reports.
type EarningsClient interface {
	// NextReport returns the earliest report on or after the day of after, or nil when none is scheduled.
	NextReport(ctx context.Context, symbol string, after time.Time) (*entity.EarningsReport, error)
}
