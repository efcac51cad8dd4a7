package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodType is the canonical bucket kind of a usage summary.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Valid reports whether the period type is supported.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	default:
		return false
	}
}

// PeriodSummary holds aggregated usage statistics over a date interval.
// Uniqueness invariant: at most one summary per (user_id, period_type,
// start_date); recomputation fully replaces the stored row.
type PeriodSummary struct {
	UserID     string
	PeriodType PeriodType
	StartDate  time.Time
	EndDate    time.Time

	TotalEnergyKWh decimal.Decimal
	AveragePowerKW decimal.Decimal
	PeakPowerKW    decimal.Decimal
	TotalCost      decimal.Decimal
	ReadingCount   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SummaryRepository persists period summaries keyed by (user, period type,
// start date). Upsert must be serialized per key.
type SummaryRepository interface {
	// Upsert writes the summary, replacing any existing row for the same
	// key, and reports whether the row was newly created.
	Upsert(ctx context.Context, summary *PeriodSummary) (created bool, err error)
	Get(ctx context.Context, userID string, periodType PeriodType, startDate time.Time) (*PeriodSummary, error)
	ListByUser(ctx context.Context, userID string, periodType PeriodType) ([]*PeriodSummary, error)
}
