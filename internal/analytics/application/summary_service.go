package application

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	analytics "prepaid-meter-cloud/internal/analytics/domain"
	readings "prepaid-meter-cloud/internal/readings/domain"
)

// ReadingReader is the slice of the reading store the aggregator needs.
type ReadingReader interface {
	ListByUserAndDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]readings.Reading, error)
	ListByUserSince(ctx context.Context, userID string, since time.Time) ([]readings.Reading, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// SummaryService computes period summaries and chart series from stored
// readings.
type SummaryService struct {
	readings  ReadingReader
	summaries analytics.SummaryRepository
	clock     Clock
}

// NewSummaryService constructs a summary service.
func NewSummaryService(readingReader ReadingReader, summaries analytics.SummaryRepository, clock Clock) (*SummaryService, error) {
	if readingReader == nil {
		return nil, errors.New("summary service: nil reading reader")
	}
	if summaries == nil {
		return nil, errors.New("summary service: nil summary repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &SummaryService{readings: readingReader, summaries: summaries, clock: clock}, nil
}

// ComputeSummary aggregates readings over the closed date interval
// [startDate, endDate] and upserts the result keyed by (user, periodType,
// startDate). The supplied period type labels the row; the range itself is
// not checked against the period length, callers own that. Returns whether
// the row was newly created. Recomputation over the same reading set is
// idempotent: the stored values come out identical.
func (s *SummaryService) ComputeSummary(ctx context.Context, userID string, periodType analytics.PeriodType, startDate, endDate time.Time) (*analytics.PeriodSummary, bool, error) {
	if userID == "" {
		return nil, false, analytics.ErrEmptyUserID
	}
	if !periodType.Valid() {
		return nil, false, analytics.ErrInvalidPeriodType
	}
	start := truncateToDay(startDate)
	end := truncateToDay(endDate)
	if start.After(end) {
		return nil, false, analytics.ErrInvalidDateRange
	}

	matched, err := s.readings.ListByUserAndDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, false, err
	}
	if len(matched) == 0 {
		return nil, false, analytics.ErrNoData
	}

	totalEnergy := decimal.Zero
	totalCost := decimal.Zero
	sumPower := decimal.Zero
	peakPower := decimal.Zero
	for _, reading := range matched {
		totalEnergy = totalEnergy.Add(reading.EnergyKWh)
		totalCost = totalCost.Add(reading.Cost)
		sumPower = sumPower.Add(reading.PowerKW)
		if reading.PowerKW.GreaterThan(peakPower) {
			peakPower = reading.PowerKW
		}
	}
	count := len(matched)
	averagePower := sumPower.Div(decimal.NewFromInt(int64(count))).Round(3)

	now := s.clock.Now().UTC()
	summary := &analytics.PeriodSummary{
		UserID:         userID,
		PeriodType:     periodType,
		StartDate:      start,
		EndDate:        end,
		TotalEnergyKWh: totalEnergy,
		AveragePowerKW: averagePower,
		PeakPowerKW:    peakPower,
		TotalCost:      totalCost,
		ReadingCount:   count,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.summaries.Upsert(ctx, summary)
	if err != nil {
		return nil, false, err
	}
	return summary, created, nil
}

// Summary returns the stored summary for the key.
func (s *SummaryService) Summary(ctx context.Context, userID string, periodType analytics.PeriodType, startDate time.Time) (*analytics.PeriodSummary, error) {
	if userID == "" {
		return nil, analytics.ErrEmptyUserID
	}
	if !periodType.Valid() {
		return nil, analytics.ErrInvalidPeriodType
	}
	return s.summaries.Get(ctx, userID, periodType, truncateToDay(startDate))
}

// Summaries lists the user's stored summaries of the given type.
func (s *SummaryService) Summaries(ctx context.Context, userID string, periodType analytics.PeriodType) ([]*analytics.PeriodSummary, error) {
	if userID == "" {
		return nil, analytics.ErrEmptyUserID
	}
	if !periodType.Valid() {
		return nil, analytics.ErrInvalidPeriodType
	}
	return s.summaries.ListByUser(ctx, userID, periodType)
}

// Chart window tokens.
const (
	WindowDay   = "day"
	WindowWeek  = "week"
	WindowMonth = "month"
)

// ChartSeries produces a finite, restartable sequence of (label, energy)
// pairs for the supported windows:
//
//   - "day": 24 hourly buckets over the trailing 24 hours, labeled by
//     wall-clock hour "00:00".."23:00" (not chronological from now)
//   - "week": 7 daily buckets oldest to newest, weekday abbreviations
//   - "month": 30 daily buckets oldest to newest, MM/DD labels
//
// Buckets with no readings yield zero.
func (s *SummaryService) ChartSeries(ctx context.Context, userID, window string, now time.Time) (iter.Seq2[string, decimal.Decimal], error) {
	if userID == "" {
		return nil, analytics.ErrEmptyUserID
	}
	now = now.UTC()

	var labels []string
	var values []decimal.Decimal

	switch window {
	case WindowDay:
		matched, err := s.readings.ListByUserSince(ctx, userID, now.Add(-24*time.Hour))
		if err != nil {
			return nil, err
		}
		buckets := make([]decimal.Decimal, 24)
		for i := range buckets {
			buckets[i] = decimal.Zero
		}
		for _, reading := range matched {
			hour := reading.Timestamp.UTC().Hour()
			buckets[hour] = buckets[hour].Add(reading.EnergyKWh)
		}
		for hour := 0; hour < 24; hour++ {
			labels = append(labels, fmt.Sprintf("%02d:00", hour))
			values = append(values, buckets[hour])
		}

	case WindowWeek:
		var err error
		labels, values, err = s.dailyBuckets(ctx, userID, now, 7, func(day time.Time) string {
			return day.Weekday().String()[:3]
		})
		if err != nil {
			return nil, err
		}

	case WindowMonth:
		var err error
		labels, values, err = s.dailyBuckets(ctx, userID, now, 30, func(day time.Time) string {
			return day.Format("01/02")
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, analytics.ErrInvalidWindow
	}

	return func(yield func(string, decimal.Decimal) bool) {
		for i := range labels {
			if !yield(labels[i], values[i]) {
				return
			}
		}
	}, nil
}

func (s *SummaryService) dailyBuckets(ctx context.Context, userID string, now time.Time, days int, label func(time.Time) string) ([]string, []decimal.Decimal, error) {
	today := truncateToDay(now)
	first := today.AddDate(0, 0, -(days - 1))

	matched, err := s.readings.ListByUserSince(ctx, userID, first)
	if err != nil {
		return nil, nil, err
	}

	byDay := make(map[time.Time]decimal.Decimal, days)
	for _, reading := range matched {
		day := truncateToDay(reading.Timestamp)
		byDay[day] = byDay[day].Add(reading.EnergyKWh)
	}

	labels := make([]string, 0, days)
	values := make([]decimal.Decimal, 0, days)
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		labels = append(labels, label(day))
		value, ok := byDay[day]
		if !ok {
			value = decimal.Zero
		}
		values = append(values, value)
	}
	return labels, values, nil
}

// UsageStats holds headline usage figures for a user.
type UsageStats struct {
	Today        decimal.Decimal `json:"today"`
	Yesterday    decimal.Decimal `json:"yesterday"`
	ThisWeek     decimal.Decimal `json:"this_week"`
	ThisMonth    decimal.Decimal `json:"this_month"`
	AverageDaily decimal.Decimal `json:"average_daily"`
	PeakPowerKW  decimal.Decimal `json:"peak_power"`
}

// Stats computes today/yesterday/week/month totals plus the trailing
// 30-day daily average and peak power, each rounded to two places.
func (s *SummaryService) Stats(ctx context.Context, userID string, now time.Time) (*UsageStats, error) {
	if userID == "" {
		return nil, analytics.ErrEmptyUserID
	}
	now = now.UTC()
	today := truncateToDay(now)
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)
	monthAgo := today.AddDate(0, 0, -30)

	matched, err := s.readings.ListByUserSince(ctx, userID, monthAgo)
	if err != nil {
		return nil, err
	}

	stats := UsageStats{
		Today:        decimal.Zero,
		Yesterday:    decimal.Zero,
		ThisWeek:     decimal.Zero,
		ThisMonth:    decimal.Zero,
		AverageDaily: decimal.Zero,
		PeakPowerKW:  decimal.Zero,
	}
	for _, reading := range matched {
		day := truncateToDay(reading.Timestamp)
		if day.Equal(today) {
			stats.Today = stats.Today.Add(reading.EnergyKWh)
		}
		if day.Equal(yesterday) {
			stats.Yesterday = stats.Yesterday.Add(reading.EnergyKWh)
		}
		if !day.Before(weekAgo) {
			stats.ThisWeek = stats.ThisWeek.Add(reading.EnergyKWh)
		}
		stats.ThisMonth = stats.ThisMonth.Add(reading.EnergyKWh)
		if reading.PowerKW.GreaterThan(stats.PeakPowerKW) {
			stats.PeakPowerKW = reading.PowerKW
		}
	}
	if stats.ThisMonth.IsPositive() {
		stats.AverageDaily = stats.ThisMonth.Div(decimal.NewFromInt(30))
	}

	stats.Today = stats.Today.Round(2)
	stats.Yesterday = stats.Yesterday.Round(2)
	stats.ThisWeek = stats.ThisWeek.Round(2)
	stats.ThisMonth = stats.ThisMonth.Round(2)
	stats.AverageDaily = stats.AverageDaily.Round(2)
	stats.PeakPowerKW = stats.PeakPowerKW.Round(2)
	return &stats, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
