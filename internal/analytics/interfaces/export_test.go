package interfaces

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	analytics "prepaid-meter-cloud/internal/analytics/domain"
)

func sampleSummaries() []*analytics.PeriodSummary {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	return []*analytics.PeriodSummary{
		{
			UserID:         "user-1",
			PeriodType:     analytics.PeriodDaily,
			StartDate:      day,
			EndDate:        day,
			TotalEnergyKWh: decimal.RequireFromString("5.0"),
			AveragePowerKW: decimal.RequireFromString("0.900"),
			PeakPowerKW:    decimal.RequireFromString("1.4"),
			TotalCost:      decimal.RequireFromString("100.00"),
			ReadingCount:   3,
		},
	}
}

func TestBuildUsagePDF(t *testing.T) {
	payload, err := BuildUsagePDF("user-1", sampleSummaries(), time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(payload, []byte("%PDF")) {
		t.Fatal("expected PDF magic header")
	}
}

func TestBuildUsageXLSX(t *testing.T) {
	payload, err := BuildUsageXLSX("user-1", sampleSummaries(), time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(payload, []byte("PK")) {
		t.Fatal("expected zip magic header")
	}
}
