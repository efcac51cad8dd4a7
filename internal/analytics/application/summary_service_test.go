package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	analytics "prepaid-meter-cloud/internal/analytics/domain"
	analyticsmem "prepaid-meter-cloud/internal/analytics/infrastructure/memory"
	readings "prepaid-meter-cloud/internal/readings/domain"
	readingsmem "prepaid-meter-cloud/internal/readings/infrastructure/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestSummaryService(t *testing.T) (*SummaryService, *readingsmem.ReadingRepository, *analyticsmem.SummaryRepository) {
	t.Helper()
	readingRepo := readingsmem.NewReadingRepository()
	summaryRepo := analyticsmem.NewSummaryRepository()
	clock := fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	service, err := NewSummaryService(readingRepo, summaryRepo, clock)
	if err != nil {
		t.Fatalf("new summary service: %v", err)
	}
	return service, readingRepo, summaryRepo
}

func insertReading(t *testing.T, repo *readingsmem.ReadingRepository, userID string, ts time.Time, energy, power string) {
	t.Helper()
	err := repo.Insert(context.Background(), readings.Reading{
		ID:        "r-" + ts.Format("20060102T150405"),
		UserID:    userID,
		Timestamp: ts,
		EnergyKWh: decimal.RequireFromString(energy),
		PowerKW:   decimal.RequireFromString(power),
		Cost:      decimal.RequireFromString(energy).Mul(decimal.NewFromInt(20)).Round(2),
		CreatedAt: ts,
	})
	if err != nil {
		t.Fatalf("insert reading: %v", err)
	}
}

func TestComputeSummaryAggregatesAndUpserts(t *testing.T) {
	service, readingRepo, _ := newTestSummaryService(t)

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	insertReading(t, readingRepo, "user-1", day.Add(1*time.Hour), "1.5", "0.8")
	insertReading(t, readingRepo, "user-1", day.Add(2*time.Hour), "2.5", "1.4")
	insertReading(t, readingRepo, "user-1", day.Add(3*time.Hour), "1.0", "0.5")

	summary, created, err := service.ComputeSummary(context.Background(), "user-1", analytics.PeriodDaily, day, day)
	if err != nil {
		t.Fatalf("compute summary: %v", err)
	}
	if !created {
		t.Fatal("expected first compute to create the summary")
	}
	if summary.TotalEnergyKWh.StringFixed(1) != "5.0" {
		t.Fatalf("expected total energy 5.0, got %s", summary.TotalEnergyKWh)
	}
	if summary.AveragePowerKW.StringFixed(3) != "0.900" {
		t.Fatalf("expected average power 0.900, got %s", summary.AveragePowerKW)
	}
	if summary.PeakPowerKW.StringFixed(1) != "1.4" {
		t.Fatalf("expected peak power 1.4, got %s", summary.PeakPowerKW)
	}
	if summary.ReadingCount != 3 {
		t.Fatalf("expected reading count 3, got %d", summary.ReadingCount)
	}

	// Recompute over the same data: same values, no new row.
	again, created, err := service.ComputeSummary(context.Background(), "user-1", analytics.PeriodDaily, day, day)
	if err != nil {
		t.Fatalf("recompute summary: %v", err)
	}
	if created {
		t.Fatal("expected recompute to update, not create")
	}
	if !again.TotalEnergyKWh.Equal(summary.TotalEnergyKWh) || again.ReadingCount != summary.ReadingCount {
		t.Fatalf("recompute changed values: %+v vs %+v", again, summary)
	}
}

func TestComputeSummaryNoDataWritesNothing(t *testing.T) {
	service, _, summaryRepo := newTestSummaryService(t)

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	_, _, err := service.ComputeSummary(context.Background(), "user-1", analytics.PeriodDaily, day, day)
	if !errors.Is(err, analytics.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := summaryRepo.Get(context.Background(), "user-1", analytics.PeriodDaily, day); !errors.Is(err, analytics.ErrSummaryNotFound) {
		t.Fatal("expected no summary row after ErrNoData")
	}
}

func TestComputeSummaryValidation(t *testing.T) {
	service, _, _ := newTestSummaryService(t)
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	if _, _, err := service.ComputeSummary(context.Background(), "", analytics.PeriodDaily, day, day); !errors.Is(err, analytics.ErrEmptyUserID) {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
	if _, _, err := service.ComputeSummary(context.Background(), "user-1", "hourly", day, day); !errors.Is(err, analytics.ErrInvalidPeriodType) {
		t.Fatalf("expected ErrInvalidPeriodType, got %v", err)
	}
	if _, _, err := service.ComputeSummary(context.Background(), "user-1", analytics.PeriodDaily, day, day.AddDate(0, 0, -1)); !errors.Is(err, analytics.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestChartSeriesDayWindow(t *testing.T) {
	service, readingRepo, _ := newTestSummaryService(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// One reading inside the trailing 24h at 09:30, one outside.
	insertReading(t, readingRepo, "user-1", now.Add(-150*time.Minute), "3.0", "1.0")
	insertReading(t, readingRepo, "user-1", now.Add(-30*time.Hour), "9.9", "1.0")

	seq, err := service.ChartSeries(context.Background(), "user-1", WindowDay, now)
	if err != nil {
		t.Fatalf("chart series: %v", err)
	}

	var labels []string
	total := decimal.Zero
	byLabel := map[string]decimal.Decimal{}
	for label, value := range seq {
		labels = append(labels, label)
		total = total.Add(value)
		byLabel[label] = value
	}

	if len(labels) != 24 {
		t.Fatalf("expected 24 buckets, got %d", len(labels))
	}
	if labels[0] != "00:00" || labels[23] != "23:00" {
		t.Fatalf("unexpected label order: first=%s last=%s", labels[0], labels[23])
	}
	if total.StringFixed(1) != "3.0" {
		t.Fatalf("expected window total 3.0, got %s", total)
	}
	if byLabel["09:00"].StringFixed(1) != "3.0" {
		t.Fatalf("expected 3.0 in the 09:00 bucket, got %s", byLabel["09:00"])
	}

	// Restartable: a second pass yields the same series.
	count := 0
	for range seq {
		count++
	}
	if count != 24 {
		t.Fatalf("expected sequence to be restartable, second pass had %d buckets", count)
	}
}

func TestChartSeriesWeekAndMonthWindows(t *testing.T) {
	service, readingRepo, _ := newTestSummaryService(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) // a Tuesday

	insertReading(t, readingRepo, "user-1", now.AddDate(0, 0, -2), "4.0", "1.0")

	seq, err := service.ChartSeries(context.Background(), "user-1", WindowWeek, now)
	if err != nil {
		t.Fatalf("week series: %v", err)
	}
	var labels []string
	var values []decimal.Decimal
	for label, value := range seq {
		labels = append(labels, label)
		values = append(values, value)
	}
	if len(labels) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(labels))
	}
	if labels[6] != "Tue" {
		t.Fatalf("expected newest bucket labeled Tue, got %s", labels[6])
	}
	if values[4].StringFixed(1) != "4.0" {
		t.Fatalf("expected 4.0 two days back, got %s", values[4])
	}

	seq, err = service.ChartSeries(context.Background(), "user-1", WindowMonth, now)
	if err != nil {
		t.Fatalf("month series: %v", err)
	}
	labels = labels[:0]
	for label := range seq {
		labels = append(labels, label)
	}
	if len(labels) != 30 {
		t.Fatalf("expected 30 buckets, got %d", len(labels))
	}
	if labels[0] != "02/09" || labels[29] != "03/10" {
		t.Fatalf("unexpected month labels: first=%s last=%s", labels[0], labels[29])
	}
}

func TestChartSeriesInvalidWindow(t *testing.T) {
	service, _, _ := newTestSummaryService(t)
	if _, err := service.ChartSeries(context.Background(), "user-1", "year", time.Now()); !errors.Is(err, analytics.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestStats(t *testing.T) {
	service, readingRepo, _ := newTestSummaryService(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	insertReading(t, readingRepo, "user-1", now.Add(-1*time.Hour), "2.0", "1.5")               // today
	insertReading(t, readingRepo, "user-1", now.AddDate(0, 0, -1), "3.0", "2.5")              // yesterday
	insertReading(t, readingRepo, "user-1", now.AddDate(0, 0, -10), "5.0", "0.5")             // this month only
	insertReading(t, readingRepo, "user-1", now.AddDate(0, 0, -40).Add(time.Hour), "99", "9") // outside

	stats, err := service.Stats(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Today.StringFixed(2) != "2.00" {
		t.Fatalf("today = %s", stats.Today)
	}
	if stats.Yesterday.StringFixed(2) != "3.00" {
		t.Fatalf("yesterday = %s", stats.Yesterday)
	}
	if stats.ThisWeek.StringFixed(2) != "5.00" {
		t.Fatalf("this week = %s", stats.ThisWeek)
	}
	if stats.ThisMonth.StringFixed(2) != "10.00" {
		t.Fatalf("this month = %s", stats.ThisMonth)
	}
	if stats.AverageDaily.StringFixed(2) != "0.33" {
		t.Fatalf("average daily = %s", stats.AverageDaily)
	}
	if stats.PeakPowerKW.StringFixed(2) != "2.50" {
		t.Fatalf("peak power = %s", stats.PeakPowerKW)
	}
}
