package application

import (
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	accounts "prepaid-meter-cloud/internal/accounts/domain"
	accountsmem "prepaid-meter-cloud/internal/accounts/infrastructure/memory"
	alerts "prepaid-meter-cloud/internal/alerts/domain"
	billingevents "prepaid-meter-cloud/internal/billing/application/events"
	readingevents "prepaid-meter-cloud/internal/readings/application/events"
)

func newTestEvaluator(t *testing.T) (*Evaluator, *Dispatcher, *accountsmem.SettingsRepository) {
	t.Helper()
	dispatcher, _, settings, _ := newTestDispatcher(t)
	evaluator, err := NewEvaluator(settings, dispatcher, log.New(discard{}, "", 0))
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	return evaluator, dispatcher, settings
}

func usageEvent(energy string) readingevents.ReadingRecorded {
	return readingevents.ReadingRecorded{
		ReadingID:  "reading-1",
		UserID:     "user-1",
		Timestamp:  time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		EnergyKWh:  decimal.RequireFromString(energy),
		PowerKW:    decimal.RequireFromString("1.0"),
		Cost:       decimal.RequireFromString("20.00"),
		OccurredAt: time.Date(2026, 3, 10, 11, 0, 1, 0, time.UTC),
	}
}

func TestHighUsageAlertAtThreshold(t *testing.T) {
	evaluator, dispatcher, _ := newTestEvaluator(t)

	// Default threshold is 5.0; equal energy qualifies.
	if err := evaluator.HandleReadingRecorded(context.Background(), usageEvent("5.0")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	raised, err := dispatcher.List(context.Background(), "user-1", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(raised) != 1 {
		t.Fatalf("expected one alert, got %d", len(raised))
	}
	alert := raised[0]
	if alert.Kind != alerts.KindHighUsage {
		t.Fatalf("expected high_usage, got %s", alert.Kind)
	}
	if alert.Title != "High Energy Usage Alert" {
		t.Fatalf("unexpected title: %s", alert.Title)
	}
	if !strings.Contains(alert.Message, "5kWh") && !strings.Contains(alert.Message, "5.0kWh") {
		t.Fatalf("unexpected message: %s", alert.Message)
	}
	if alert.Data["reading_id"] != "reading-1" {
		t.Fatalf("expected reading id in data, got %v", alert.Data)
	}
}

func TestHighUsageAlertFiresAboveDefaultThreshold(t *testing.T) {
	evaluator, dispatcher, _ := newTestEvaluator(t)

	if err := evaluator.HandleReadingRecorded(context.Background(), usageEvent("6.0")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	raised, _ := dispatcher.List(context.Background(), "user-1", false)
	if len(raised) != 1 {
		t.Fatalf("expected high_usage alert for 6.0 kWh under default threshold, got %d", len(raised))
	}
}

func TestNoHighUsageAlertBelowThreshold(t *testing.T) {
	evaluator, dispatcher, _ := newTestEvaluator(t)

	if err := evaluator.HandleReadingRecorded(context.Background(), usageEvent("4.99")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	raised, _ := dispatcher.List(context.Background(), "user-1", false)
	if len(raised) != 0 {
		t.Fatalf("expected no alerts, got %d", len(raised))
	}
}

func TestDisabledUsageAlertSuppressesEvaluation(t *testing.T) {
	evaluator, dispatcher, settings := newTestEvaluator(t)
	disabled := accounts.DefaultSettings("user-1")
	disabled.UsageAlertEnabled = false
	if err := settings.Put(context.Background(), disabled); err != nil {
		t.Fatalf("put settings: %v", err)
	}

	if err := evaluator.HandleReadingRecorded(context.Background(), usageEvent("999")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	raised, _ := dispatcher.List(context.Background(), "user-1", false)
	if len(raised) != 0 {
		t.Fatalf("expected no alerts when disabled, got %d", len(raised))
	}
}

func TestEveryQualifyingReadingRaisesFreshAlert(t *testing.T) {
	evaluator, dispatcher, _ := newTestEvaluator(t)

	for i := 0; i < 3; i++ {
		if err := evaluator.HandleReadingRecorded(context.Background(), usageEvent("12")); err != nil {
			t.Fatalf("handle #%d: %v", i+1, err)
		}
	}
	raised, _ := dispatcher.List(context.Background(), "user-1", false)
	if len(raised) != 3 {
		t.Fatalf("expected an alert per qualifying event, got %d", len(raised))
	}
}

func TestLowBalanceAlertAtThreshold(t *testing.T) {
	evaluator, dispatcher, _ := newTestEvaluator(t)

	event := billingevents.BalanceChanged{
		UserID:     "user-1",
		Balance:    decimal.RequireFromString("10.00"), // equal to default threshold
		OccurredAt: time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}
	if err := evaluator.HandleBalanceChanged(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	raised, _ := dispatcher.List(context.Background(), "user-1", false)
	if len(raised) != 1 {
		t.Fatalf("expected one alert, got %d", len(raised))
	}
	if raised[0].Kind != alerts.KindLowBalance {
		t.Fatalf("expected low_balance, got %s", raised[0].Kind)
	}
	if raised[0].Title != "Low Balance Alert" {
		t.Fatalf("unexpected title: %s", raised[0].Title)
	}
	if !strings.Contains(raised[0].Message, "top up") {
		t.Fatalf("unexpected message: %s", raised[0].Message)
	}
}

func TestNoLowBalanceAlertAboveThreshold(t *testing.T) {
	evaluator, dispatcher, _ := newTestEvaluator(t)

	event := billingevents.BalanceChanged{
		UserID:  "user-1",
		Balance: decimal.RequireFromString("10.01"),
	}
	if err := evaluator.HandleBalanceChanged(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	raised, _ := dispatcher.List(context.Background(), "user-1", false)
	if len(raised) != 0 {
		t.Fatalf("expected no alerts, got %d", len(raised))
	}
}

func TestEvaluatorRejectsForeignEvents(t *testing.T) {
	evaluator, _, _ := newTestEvaluator(t)
	if err := evaluator.HandleReadingRecorded(context.Background(), "not an event"); err == nil {
		t.Fatal("expected error for unexpected event type")
	}
	if err := evaluator.HandleBalanceChanged(context.Background(), 42); err == nil {
		t.Fatal("expected error for unexpected event type")
	}
}
