package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"prepaid-meter-cloud/internal/billing/application/events"
	billing "prepaid-meter-cloud/internal/billing/domain"
	"prepaid-meter-cloud/internal/billing/infrastructure/memory"
)

type recordingBus struct {
	mu     sync.Mutex
	events []any
}

func (b *recordingBus) Publish(_ context.Context, event any) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	return nil
}

func (b *recordingBus) BalanceChanges() []events.BalanceChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []events.BalanceChanged
	for _, event := range b.events {
		if evt, ok := event.(events.BalanceChanged); ok {
			result = append(result, evt)
		}
	}
	return result
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestLedger(t *testing.T) (*Ledger, *recordingBus) {
	t.Helper()
	bus := &recordingBus{}
	clock := fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	ledger, err := NewLedger(memory.NewBalanceRepository(), bus, clock, log.New(discard{}, "", 0))
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return ledger, bus
}

func TestCreditRejectsNonPositiveAmounts(t *testing.T) {
	ledger, bus := newTestLedger(t)

	for _, amount := range []string{"0", "-1", "-0.01"} {
		_, err := ledger.Credit(context.Background(), "user-1", decimal.RequireFromString(amount))
		if !errors.Is(err, billing.ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if balance, _ := ledger.Balance(context.Background(), "user-1"); !balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", balance)
	}
	if len(bus.BalanceChanges()) != 0 {
		t.Fatal("expected no events for rejected credits")
	}
}

func TestCreditPublishesBalanceChanged(t *testing.T) {
	ledger, bus := newTestLedger(t)

	balance, err := ledger.Credit(context.Background(), "user-1", decimal.RequireFromString("25.50"))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance.StringFixed(2) != "25.50" {
		t.Fatalf("expected balance 25.50, got %s", balance)
	}

	changes := bus.BalanceChanges()
	if len(changes) != 1 {
		t.Fatalf("expected one BalanceChanged event, got %d", len(changes))
	}
	if changes[0].UserID != "user-1" || !changes[0].Balance.Equal(balance) {
		t.Fatalf("event does not match credit: %+v", changes[0])
	}
}

func TestConcurrentCreditsAllLand(t *testing.T) {
	ledger, _ := newTestLedger(t)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := ledger.Credit(context.Background(), "user-1", decimal.RequireFromString("1.00")); err != nil {
				t.Errorf("credit: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, err := ledger.Balance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.StringFixed(2) != "50.00" {
		t.Fatalf("expected balance 50.00 after %d credits, got %s", workers, balance)
	}
}

func TestBalanceOfUnknownUserIsZero(t *testing.T) {
	ledger, _ := newTestLedger(t)
	balance, err := ledger.Balance(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", balance)
	}
}
